package inject

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func otpSpec() Spec {
	return Spec{
		Module: "resend-otp",
		Imports: []Import{
			{Path: "dotenv/config"},
			{Name: "otpRoutes", Path: "./routes/otpRoutes.js"},
		},
		Middleware: []string{
			"app.use(express.json())",
			"app.use('/', otpRoutes)",
		},
	}
}

func googleSpec() Spec {
	return Spec{
		Module: "google-oauth",
		Imports: []Import{
			{Path: "dotenv/config"},
			{Name: "session", Path: "express-session"},
			{Name: "passport", Path: "passport"},
			{Name: "googleAuthRoutes", Path: "./routes/googleAuthRoutes.js"},
			{Path: "./config/googleStrategy.js"},
		},
		Middleware: []string{
			"app.use(session({\n  secret: process.env.SESSION_SECRET || 'your-session-secret',\n  resave: false,\n  saveUninitialized: false,\n}))",
			"app.use(passport.initialize())",
			"app.use(passport.session())",
			"app.use('/', googleAuthRoutes)",
		},
		EnsureListen: true,
	}
}

const basicApp = `import express from 'express';

const app = express();

app.get('/', (req, res) => res.send('ok'));

app.listen(3000);
`

func TestPatch_OTPSingleOccurrence(t *testing.T) {
	out, err := Patch(basicApp, otpSpec())
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "app.use('/', otpRoutes)"))
	assert.Equal(t, 1, strings.Count(out, "app.use(express.json())"))
	assert.Equal(t, 1, strings.Count(out, "import otpRoutes from './routes/otpRoutes.js';"))
	assert.Equal(t, 1, strings.Count(out, "import express from 'express';"))
	assert.Equal(t, 1, strings.Count(out, "app.listen("))

	// Middleware goes right after the app-creation line.
	appIdx := strings.Index(out, "const app = express();")
	mwIdx := strings.Index(out, "app.use(express.json());")
	require.True(t, appIdx >= 0 && mwIdx > appIdx)
	assert.Less(t, mwIdx, strings.Index(out, "app.get("))
}

func TestPatch_Idempotent(t *testing.T) {
	for _, spec := range []Spec{otpSpec(), googleSpec()} {
		t.Run(spec.Module, func(t *testing.T) {
			once, err := Patch(basicApp, spec)
			require.NoError(t, err)
			twice, err := Patch(once, spec)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestPatch_ExactOutput(t *testing.T) {
	out, err := Patch(basicApp, otpSpec())
	require.NoError(t, err)

	want := `import express from 'express';
// devark:resend-otp:imports:start
import 'dotenv/config';
import otpRoutes from './routes/otpRoutes.js';
// devark:resend-otp:imports:end

const app = express();
// devark:resend-otp:middleware:start
app.use(express.json());
app.use('/', otpRoutes);
// devark:resend-otp:middleware:end

app.get('/', (req, res) => res.send('ok'));

app.listen(3000);
`
	assert.Equal(t, want, out)
}

func TestPatch_MovesExistingUserLinesIntoBlock(t *testing.T) {
	content := `import express from 'express'
import otpRoutes from './routes/otpRoutes.js'

const app = express()
app.use(express.json())
app.use('/', otpRoutes)
`
	out, err := Patch(content, otpSpec())
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "app.use(express.json())"))
	assert.Equal(t, 1, strings.Count(out, "import otpRoutes"))
	// Semicolon-free files stay semicolon-free.
	assert.NotContains(t, out, "otpRoutes);")
	assert.Contains(t, out, "// devark:resend-otp:middleware:start")
}

func TestPatch_SharedMiddlewareNotRepeated(t *testing.T) {
	jwt := Spec{
		Module:     "jwt",
		Imports:    []Import{{Name: "authRoutes", Path: "./routes/authRoutes.js"}},
		Middleware: []string{"app.use(express.json())", "app.use('/auth', authRoutes)"},
	}

	out, err := Patch(basicApp, otpSpec())
	require.NoError(t, err)
	out, err = Patch(out, jwt)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "app.use(express.json())"))
	assert.Equal(t, 1, strings.Count(out, "import 'dotenv/config'"))
	assert.Contains(t, out, "app.use('/auth', authRoutes);")

	// Install order is kept: otp block before jwt block.
	assert.Less(t, strings.Index(out, "devark:resend-otp:middleware:start"), strings.Index(out, "devark:jwt:middleware:start"))

	again, err := Patch(out, jwt)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestPatch_EmptyFileGetsScaffold(t *testing.T) {
	out, err := Patch("", googleSpec())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "// devark:google-oauth:imports:start\nimport express from 'express';"))
	assert.Contains(t, out, "const app = express();")
	assert.Equal(t, 1, strings.Count(out, "app.use(session({"))
	assert.Equal(t, 1, strings.Count(out, "app.use(passport.initialize());"))
	assert.Contains(t, out, "app.listen(3000, () => {")

	again, err := Patch(out, googleSpec())
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestPatch_TypeScriptAppendsTypedApp(t *testing.T) {
	spec := otpSpec()
	spec.TypeScript = true
	spec.EnsureListen = true

	out, err := Patch("console.log('boot');\n", spec)
	require.NoError(t, err)

	assert.Contains(t, out, "import express, { Application } from 'express';")
	assert.Contains(t, out, "const app: Application = express();")
	assert.Contains(t, out, "const PORT = process.env.PORT || 3000;")

	again, err := Patch(out, spec)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestPatch_TypedAppLineRecognised(t *testing.T) {
	content := "import express, { Application } from 'express';\n\nconst app: Application = express();\n"
	spec := otpSpec()
	spec.TypeScript = true

	out, err := Patch(content, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "express();"))
	assert.Less(t, strings.Index(out, "const app: Application"), strings.Index(out, "app.use(express.json());"))
}

func TestPatch_CommonJS(t *testing.T) {
	content := `const express = require('express');

const app = express();

module.exports = app;
`
	out, err := Patch(content, otpSpec())
	require.NoError(t, err)

	assert.Contains(t, out, "require('dotenv/config');")
	assert.Contains(t, out, "const otpRoutes = require('./routes/otpRoutes.js');")
	assert.NotContains(t, out, "import ")
	assert.Less(t, strings.Index(out, "const express = require('express');"), strings.Index(out, "devark:resend-otp:imports:start"))
}

func TestPatch_MiddlewareAnchor(t *testing.T) {
	content := `import express from 'express';

const app = express();
app.set('view engine', 'ejs');
// devark:middleware

app.get('/', (req, res) => res.send('ok'));
`
	out, err := Patch(content, otpSpec())
	require.NoError(t, err)

	anchor := strings.Index(out, MiddlewareAnchor+"\n")
	block := strings.Index(out, "// devark:resend-otp:middleware:start")
	assert.Greater(t, block, anchor)
	assert.Greater(t, block, strings.Index(out, "app.set("))
}

func TestPatch_MultiLineImports(t *testing.T) {
	content := `import {
  json,
  urlencoded,
} from 'express';
import express from 'express';

const app = express();
`
	out, err := Patch(content, otpSpec())
	require.NoError(t, err)
	assert.Contains(t, out, "import express from 'express';\n// devark:resend-otp:imports:start")
}

func TestPatch_ShebangStaysFirst(t *testing.T) {
	out, err := Patch("#!/usr/bin/env node\nconst app = express();\n", otpSpec())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "#!/usr/bin/env node\n// devark:resend-otp:imports:start"))
}

func TestPatch_ListenNotDuplicated(t *testing.T) {
	content := "import express from 'express';\nconst app = express();\nconst server = app.listen(8080);\n"
	out, err := Patch(content, googleSpec())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, ".listen("))
}

func TestPatch_CRLFPreserved(t *testing.T) {
	content := strings.ReplaceAll(basicApp, "\n", "\r\n")
	out, err := Patch(content, otpSpec())
	require.NoError(t, err)
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestPatch_UnterminatedBlock(t *testing.T) {
	content := "// devark:jwt:imports:start\nimport x from 'y';\n"
	_, err := Patch(content, otpSpec())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedBlock))
}

func TestPatch_RequiresModule(t *testing.T) {
	_, err := Patch(basicApp, Spec{})
	assert.Error(t, err)
}

func TestPatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(path, []byte(basicApp), 0644))

	before, after, err := PatchFile(path, otpSpec())
	require.NoError(t, err)
	assert.Equal(t, basicApp, before)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, after, string(data))
}

func TestPatchFile_NotRegular(t *testing.T) {
	dir := t.TempDir()

	_, _, err := PatchFile(filepath.Join(dir, "missing.js"), otpSpec())
	assert.True(t, errors.Is(err, ErrNotRegularFile))

	_, _, err = PatchFile(dir, otpSpec())
	assert.True(t, errors.Is(err, ErrNotRegularFile))
}

func TestPatchFile_FollowsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "server.js")
	link := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(target, []byte(basicApp), 0644))
	require.NoError(t, os.Symlink(target, link))

	_, after, err := PatchFile(link, otpSpec())
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, after, string(data))

	fi, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink, "link is kept")
}

func TestIsCommonJS(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ts      bool
		want    bool
	}{
		{"require", "const express = require('express');\nconst app = express();\n", false, true},
		{"import", basicApp, false, false},
		{"empty", "", false, false},
		{"typescript", "const express = require('express');\n", true, false},
		{"mixed prefers esm", "import x from 'x';\nconst y = require('y');\n", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCommonJS(tt.content, Spec{Module: "jwt", TypeScript: tt.ts}))
		})
	}
}

func TestMarkers(t *testing.T) {
	start, end := Markers("jwt", "imports")
	assert.Equal(t, "// devark:jwt:imports:start", start)
	assert.Equal(t, "// devark:jwt:imports:end", end)
}
