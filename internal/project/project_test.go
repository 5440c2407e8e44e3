package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		wantErr bool
	}{
		{name: "missing", content: nil, wantErr: true},
		{name: "invalid json", content: ptr("invalid json"), wantErr: true},
		{name: "non-object", content: ptr(`"string"`), wantErr: true},
		{name: "array", content: ptr(`[]`), wantErr: true},
		{name: "object", content: ptr(`{"name": "app", "version": "1.2.3", "type": "module"}`)},
		{name: "jsonc", content: ptr("{\n  // comment\n  \"name\": \"app\",\n}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != nil {
				writeFile(t, dir, PackageJSON, *tt.content)
			}
			info, err := Validate(dir, nil)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNotNodeProject))
				assert.False(t, IsValid(dir))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "app", info.Name)
			assert.True(t, IsValid(dir))
		})
	}
}

func TestValidate_DetectsManager(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PackageJSON, `{"name":"app"}`)
	writeFile(t, dir, "yarn.lock", "")

	info, err := Validate(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Yarn, info.Manager)
}

func TestDetectManager(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		order []Manager
		want  Manager
	}{
		{name: "pnpm", files: []string{"pnpm-lock.yaml"}, want: PNPM},
		{name: "yarn", files: []string{"yarn.lock"}, want: Yarn},
		{name: "npm", files: []string{"package-lock.json"}, want: NPM},
		{name: "bun text lock", files: []string{"bun.lock"}, want: Bun},
		{name: "bun binary lock", files: []string{"bun.lockb"}, want: Bun},
		{name: "pnpm wins", files: []string{"pnpm-lock.yaml", "yarn.lock", "package-lock.json"}, want: PNPM},
		{name: "yarn over npm", files: []string{"yarn.lock", "package-lock.json"}, want: Yarn},
		{name: "npm-first policy", files: []string{"pnpm-lock.yaml", "package-lock.json"}, order: []Manager{NPM, PNPM, Yarn, Bun}, want: NPM},
		{name: "none", want: ManagerNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, dir, f, "")
			}
			assert.Equal(t, tt.want, DetectManager(dir, tt.order))
		})
	}
}

func TestManagerFromUserAgent(t *testing.T) {
	tests := map[string]Manager{
		"pnpm/9.1.0 npm/? node/v20.11.0 linux x64": PNPM,
		"yarn/1.22.19 npm/? node/v18.0.0":           Yarn,
		"npm/10.2.4 node/v20.11.0 darwin arm64":     NPM,
		"bun/1.1.0 npm/? node/v21.0.0":              Bun,
		"":                                          ManagerNone,
		"cargo/1.0":                                 ManagerNone,
	}
	for ua, want := range tests {
		assert.Equal(t, want, ManagerFromUserAgent(ua), ua)
	}
	assert.Equal(t, PNPM, ManagerFromEnv(map[string]string{UserAgentVar: "pnpm/9.0.0"}))
}

func TestParseManagerOrder(t *testing.T) {
	order, err := ParseManagerOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultManagerOrder, order)

	order, err = ParseManagerOrder([]string{"NPM", "bun"})
	require.NoError(t, err)
	assert.Equal(t, []Manager{NPM, Bun}, order)

	_, err = ParseManagerOrder([]string{"cargo"})
	assert.Error(t, err)
}

func TestManagerString(t *testing.T) {
	assert.Equal(t, "none", ManagerNone.String())
	assert.Equal(t, "pnpm", PNPM.String())
}

func TestParseLanguage(t *testing.T) {
	for in, want := range map[string]Language{"js": JavaScript, "JavaScript": JavaScript, "ts": TypeScript, "TYPESCRIPT": TypeScript} {
		got, err := ParseLanguage(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLanguage("python")
	assert.Error(t, err)
}

func TestLanguageLayout(t *testing.T) {
	assert.Equal(t, "src", TypeScript.SourceDir())
	assert.Equal(t, ".", JavaScript.SourceDir())
	assert.Equal(t, "src/app.ts", TypeScript.DefaultEntry())
	assert.Equal(t, "app.js", JavaScript.DefaultEntry())

	ctx := Context{Dir: "/p", Language: TypeScript, Entry: "src/app.ts"}
	assert.Equal(t, filepath.Join("/p", "src", "app.ts"), ctx.EntryPath())
	assert.Equal(t, filepath.Join("/p", "src"), ctx.SourceRoot())
}

func TestDetectLanguage(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, JavaScript, DetectLanguage(dir))
	writeFile(t, dir, "tsconfig.json", "{}")
	assert.Equal(t, TypeScript, DetectLanguage(dir))
}

func TestResolveEntry(t *testing.T) {
	dir := t.TempDir()

	_, ok := ResolveEntry(dir, "app.js", JavaScript)
	assert.False(t, ok)

	writeFile(t, dir, "app.js", "")
	entry, ok := ResolveEntry(dir, "app.js", JavaScript)
	assert.True(t, ok)
	assert.Equal(t, "app.js", entry)

	writeFile(t, dir, "src/types.d.ts", "")
	writeFile(t, dir, "src/server.ts", "")
	entry, ok = ResolveEntry(dir, "src/app.ts", TypeScript)
	assert.True(t, ok)
	assert.Equal(t, "src/server.ts", entry)
}

func TestUpdatePackageJSON_AddsMissingScripts(t *testing.T) {
	in := `{
  "name": "app",
  "version": "1.0.0",
  "scripts": {
    "test": "jest",
    "start": "node server.js"
  },
  "dependencies": {}
}
`
	out, changed, err := UpdatePackageJSON([]byte(in), PackageUpdate{
		Scripts: DefaultScripts(JavaScript, "app.js"),
		Type:    "module",
	})
	require.NoError(t, err)
	assert.True(t, changed)

	want := `{
  "name": "app",
  "version": "1.0.0",
  "scripts": {
    "test": "jest",
    "start": "node server.js",
    "dev": "nodemon app.js"
  },
  "dependencies": {},
  "type": "module"
}
`
	assert.Equal(t, want, string(out))
}

func TestUpdatePackageJSON_NoChange(t *testing.T) {
	in := `{"type":"commonjs","scripts":{"start":"a","dev":"b"}}`
	out, changed, err := UpdatePackageJSON([]byte(in), PackageUpdate{
		Scripts: DefaultScripts(JavaScript, "app.js"),
		Type:    "module",
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, in, string(out))
}

func TestUpdatePackageJSON_CreatesScripts(t *testing.T) {
	out, changed, err := UpdatePackageJSON([]byte(`{"name":"x"}`), PackageUpdate{Scripts: DefaultScripts(TypeScript, "src/app.ts")})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, string(out), `"start": "ts-node src/app.ts"`)
	assert.Contains(t, string(out), `"dev": "nodemon --exec ts-node src/app.ts"`)
}

func TestUpdatePackageJSON_Invalid(t *testing.T) {
	_, _, err := UpdatePackageJSON([]byte(`[1,2]`), PackageUpdate{Type: "module"})
	assert.Error(t, err)
}

func TestEnsurePackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PackageJSON, `{"name":"app"}`)

	before, after, err := EnsurePackage(dir, PackageUpdate{Scripts: DefaultScripts(JavaScript, "app.js")})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"app"}`, before)

	data, err := os.ReadFile(filepath.Join(dir, PackageJSON))
	require.NoError(t, err)
	assert.Equal(t, after, string(data))
	assert.True(t, strings.Contains(after, `"start": "node app.js"`))
}

func TestNewPackageJSON(t *testing.T) {
	out, err := NewPackageJSON("my-app", TypeScript, "src/app.ts")
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "{\n  \"name\": \"my-app\",\n  \"version\": \"1.0.0\","))
	assert.Contains(t, s, `"main": "src/app.ts"`)
	assert.NotContains(t, s, `"type"`)
	assert.Less(t, strings.Index(s, `"name"`), strings.Index(s, `"scripts"`))

	out, err = NewPackageJSON("my-app", JavaScript, "app.js")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"type": "module"`)
	assert.Contains(t, string(out), `"start": "node app.js"`)
}

func ptr(s string) *string { return &s }
