package config

const sessionMiddleware = `app.use(session({
  secret: process.env.SESSION_SECRET || 'your-session-secret',
  resave: false,
  saveUninitialized: false,
}))`

// Registry is the canonical list of all installable modules.
var Registry = map[string]Module{
	"google-oauth": {
		Name:        "google-oauth",
		Description: "Google authentication with Passport",
		Kind:        KindFeature,

		Deps:              Deps("passport", "passport-google-oauth20", "express-session", "dotenv"),
		TypeScriptDevDeps: Deps("@types/passport", "@types/passport-google-oauth20", "@types/express-session"),

		Files: []File{
			{Template: "google-oauth/googleStrategy.tmpl", Dest: "config/googleStrategy.<ext>"},
			{Template: "google-oauth/googleAuthRoutes.tmpl", Dest: "routes/googleAuthRoutes.<ext>"},
		},
		Env: []EnvVar{
			{Key: "GOOGLE_CLIENT_ID", Prompt: "Enter your Google OAuth Client ID:"},
			{Key: "GOOGLE_CLIENT_SECRET", Prompt: "Enter your Google OAuth Client Secret:", Secret: true},
			{Key: "GOOGLE_CALLBACK_URL", Prompt: "Enter your Google OAuth Callback URL:", Default: "http://localhost:3000/auth/google/callback"},
			{Key: "SESSION_SECRET", Prompt: "Session secret (leave blank to generate):", Secret: true, Generate: true},
		},

		Imports: []Import{
			{Path: "dotenv/config"},
			{Name: "session", Path: "express-session"},
			{Name: "passport", Path: "passport"},
			{Name: "googleAuthRoutes", Path: "./routes/googleAuthRoutes"},
			{Path: "./config/googleStrategy"},
		},
		Middleware: []string{
			sessionMiddleware,
			"app.use(passport.initialize())",
			"app.use(passport.session())",
			"app.use('/', googleAuthRoutes)",
		},
		EnsureListen: true,

		NextSteps: []string{
			"Visit /auth/google to start the login flow",
			"Add the callback URL to your Google Cloud OAuth client",
		},
	},

	"github-oauth": {
		Name:        "github-oauth",
		Description: "GitHub authentication with Passport",
		Kind:        KindFeature,

		Deps:              Deps("passport", "passport-github2", "express-session", "dotenv"),
		TypeScriptDevDeps: Deps("@types/passport", "@types/passport-github2", "@types/express-session"),

		Files: []File{
			{Template: "github-oauth/githubStrategy.tmpl", Dest: "config/githubStrategy.<ext>"},
			{Template: "github-oauth/githubAuthRoutes.tmpl", Dest: "routes/githubAuthRoutes.<ext>"},
		},
		Env: []EnvVar{
			{Key: "GITHUB_CLIENT_ID", Prompt: "Enter your GitHub OAuth Client ID:"},
			{Key: "GITHUB_CLIENT_SECRET", Prompt: "Enter your GitHub OAuth Client Secret:", Secret: true},
			{Key: "GITHUB_CALLBACK_URL", Prompt: "Enter your GitHub OAuth Callback URL:", Default: "http://localhost:3000/auth/github/callback"},
			{Key: "SESSION_SECRET", Prompt: "Session secret (leave blank to generate):", Secret: true, Generate: true},
		},

		Imports: []Import{
			{Path: "dotenv/config"},
			{Name: "session", Path: "express-session"},
			{Name: "passport", Path: "passport"},
			{Name: "githubAuthRoutes", Path: "./routes/githubAuthRoutes"},
			{Path: "./config/githubStrategy"},
		},
		Middleware: []string{
			sessionMiddleware,
			"app.use(passport.initialize())",
			"app.use(passport.session())",
			"app.use('/', githubAuthRoutes)",
		},
		EnsureListen: true,

		NextSteps: []string{
			"Visit /auth/github to start the login flow",
			"Set the authorization callback URL in your GitHub OAuth app",
		},
	},

	"resend-otp": {
		Name:        "resend-otp",
		Description: "One-time passwords over email with Resend",
		Aliases:     []string{"otp"},
		Kind:        KindFeature,

		Deps: Deps("resend", "dotenv"),

		Files: []File{
			{Template: "resend-otp/otpFunctions.tmpl", Dest: "controllers/otpFunctions.<ext>"},
			{Template: "resend-otp/otp.tmpl", Dest: "controllers/otp.<ext>"},
			{Template: "resend-otp/otpRoutes.tmpl", Dest: "routes/otpRoutes.<ext>"},
		},
		Env: []EnvVar{
			{Key: "RESEND_API_KEY", Prompt: "Enter your Resend API Key:", Secret: true},
			{Key: "FROM_EMAIL", Prompt: "Enter your FROM email address:"},
		},

		Imports: []Import{
			{Path: "dotenv/config"},
			{Name: "otpRoutes", Path: "./routes/otpRoutes"},
		},
		Middleware: []string{
			"app.use(express.json())",
			"app.use('/', otpRoutes)",
		},

		NextSteps: []string{
			"POST /send-otp with {\"email\"} then POST /verify-otp with {\"email\", \"otp\"}",
		},
	},

	"jwt": {
		Name:        "jwt",
		Description: "JWT authentication with bcrypt password hashing",
		Kind:        KindFeature,

		Deps:              Deps("jsonwebtoken", "bcryptjs", "dotenv"),
		TypeScriptDevDeps: Deps("@types/jsonwebtoken", "@types/bcryptjs"),

		Files: []File{
			{Template: "jwt/authController.tmpl", Dest: "controllers/authController.<ext>"},
			{Template: "jwt/authRoutes.tmpl", Dest: "routes/authRoutes.<ext>"},
			{Template: "jwt/jwtUtils.tmpl", Dest: "utils/jwtUtils.<ext>"},
		},
		Env: []EnvVar{
			{Key: "JWT_SECRET", Prompt: "JWT secret (leave blank to generate):", Secret: true, Generate: true},
			{Key: "JWT_EXPIRES_IN", Prompt: "Token lifetime:", Default: "1h"},
		},

		Imports: []Import{
			{Path: "dotenv/config"},
			{Name: "authRoutes", Path: "./routes/authRoutes"},
		},
		Middleware: []string{
			"app.use(express.json())",
			"app.use('/auth', authRoutes)",
		},

		NextSteps: []string{
			"Endpoints: /auth/register, /auth/login, /auth/profile",
			"Replace the in-memory user store in controllers/authController with your database",
		},
	},

	"node-mongo": {
		Name:        "node-mongo",
		Description: "Express + MongoDB (Mongoose) starter project",
		Aliases:     []string{"node-mongodb"},
		Kind:        KindStarter,

		Deps:    Deps("express@^4.21.0", "mongoose@^8.0.0", "morgan", "dotenv"),
		DevDeps: Deps("nodemon"),

		Files: []File{
			{Template: "node-mongo/app.tmpl", Dest: "app.js", ProjectRoot: true},
			{Template: "node-mongo/env.example.tmpl", Dest: ".env.example", ProjectRoot: true},
			{Template: "node-mongo/package.json.tmpl", Dest: "package.json", ProjectRoot: true},
			{Template: "node-mongo/User.tmpl", Dest: "models/User.js", ProjectRoot: true},
			{Template: "node-mongo/userRoutes.tmpl", Dest: "routes/userRoutes.js", ProjectRoot: true},
			{Template: "node-mongo/userController.tmpl", Dest: "controllers/userController.js", ProjectRoot: true},
			{Template: "node-mongo/Instructions.tmpl", Dest: "Instructions.md", ProjectRoot: true},
		},

		NextSteps: []string{
			"Copy .env.example to .env and set MONGO_URI",
			"Read Instructions.md for how to run the project",
		},
	},

	"node-postgres": {
		Name:        "node-postgres",
		Description: "Express + PostgreSQL (Prisma) starter project",
		Aliases:     []string{"node-postgresql", "node-prisma"},
		Kind:        KindStarter,

		Deps:    Deps("express@^4.21.0", "@prisma/client@^5.0.0", "dotenv", "morgan"),
		DevDeps: Deps("prisma@^5.0.0", "nodemon"),

		Files: []File{
			{Template: "node-postgres/app.tmpl", Dest: "app.js", ProjectRoot: true},
			{Template: "node-postgres/env.example.tmpl", Dest: ".env.example", ProjectRoot: true},
			{Template: "node-postgres/package.json.tmpl", Dest: "package.json", ProjectRoot: true},
			{Template: "node-postgres/schema.prisma.tmpl", Dest: "prisma/schema.prisma", ProjectRoot: true},
			{Template: "node-postgres/userRoutes.tmpl", Dest: "routes/userRoutes.js", ProjectRoot: true},
			{Template: "node-postgres/userController.tmpl", Dest: "controllers/userController.js", ProjectRoot: true},
			{Template: "node-postgres/Instructions.tmpl", Dest: "Instructions.md", ProjectRoot: true},
		},

		NextSteps: []string{
			"npx prisma generate",
			"npx prisma migrate dev --name init",
		},
	},
}
