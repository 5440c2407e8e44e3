package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/devark-dev/devark/internal/config"
	"github.com/devark-dev/devark/internal/prompt"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

const fixtureApp = `import express from 'express';

const app = express();

app.listen(3000);
`

type call struct {
	name string
	args []string
}

type recordingRunner struct {
	calls []call
}

func (r *recordingRunner) Run(_ context.Context, _ string, name string, args ...string) error {
	r.calls = append(r.calls, call{name: name, args: args})
	return nil
}

func testEnv(wd string, p prompt.Prompter, r *recordingRunner) *env {
	e := &env{
		prompter:     p,
		vars:         map[string]string{},
		globalPolicy: func() (config.Policy, error) { return config.Policy{}, nil },
		getwd:        func() (string, error) { return wd, nil },
	}
	if r != nil {
		e.runner = r
	}
	return e
}

func execute(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(e)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "fixture", "version": "1.0.0"}`)
	writeFile(t, dir, "app.js", fixtureApp)
	writeFile(t, dir, "pnpm-lock.yaml", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestVersion(t *testing.T) {
	for _, args := range [][]string{{"version"}, {"--version"}} {
		out, err := execute(t, testEnv(t.TempDir(), nil, nil), args...)
		require.NoError(t, err)
		assert.Equal(t, "devark vdev\n", out, args)
	}
}

func TestHelp(t *testing.T) {
	out, err := execute(t, testEnv(t.TempDir(), nil, nil), "help")
	require.NoError(t, err)

	for _, want := range []string{"Commands", "add", "init", "modules", "google-oauth", "node-postgres", "oauth", "Examples"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "install ", "deprecated commands are hidden")
}

func TestHelpTopic(t *testing.T) {
	out, err := execute(t, testEnv(t.TempDir(), nil, nil), "help", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "--dry-run")
	assert.Contains(t, out, "--create-entry")

	_, err = execute(t, testEnv(t.TempDir(), nil, nil), "help", "bogus")
	assert.Error(t, err)
}

func TestAdd_UnknownModule(t *testing.T) {
	dir := newProject(t)
	_, err := execute(t, testEnv(dir, nil, nil), "add", "passport-magic", "--dir", dir, "--yes")
	assert.ErrorIs(t, err, config.ErrUnknownModule)
}

func TestAdd_JWT(t *testing.T) {
	dir := newProject(t)
	runner := &recordingRunner{}

	out, err := execute(t, testEnv(dir, nil, runner), "add", "jwt", "--dir", dir, "--yes")
	require.NoError(t, err)

	app, err := os.ReadFile(filepath.Join(dir, "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(app), "import authRoutes from './routes/authRoutes.js';")
	assert.FileExists(t, filepath.Join(dir, "utils", "jwtUtils.js"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "pnpm", runner.calls[0].name)
	assert.Equal(t, []string{"add", "jsonwebtoken", "bcryptjs", "dotenv"}, runner.calls[0].args)

	assert.Contains(t, out, "Adding jwt")
	assert.Contains(t, out, "+ routes/authRoutes.js")
	assert.Contains(t, out, "Next steps:")

	manifest, err := config.LoadManifest(dir)
	require.NoError(t, err)
	assert.True(t, manifest.IsInstalled("jwt"))
}

func TestAdd_FindsProjectRootFromSubdirectory(t *testing.T) {
	dir := newProject(t)
	sub := filepath.Join(dir, "routes", "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))

	_, err := execute(t, testEnv(sub, nil, &recordingRunner{}), "add", "jwt", "--yes")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "routes", "authRoutes.js"))
}

func TestAdd_OAuthSelector(t *testing.T) {
	dir := newProject(t)
	p := &prompt.Scripted{Answers: map[string]string{"Which OAuth provider?": "github-oauth"}}

	_, err := execute(t, testEnv(dir, p, &recordingRunner{}), "add", "oauth", "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "config", "githubStrategy.js"))
	assert.Equal(t, "Which OAuth provider?", p.Asked[0])
}

func TestAdd_Cancelled(t *testing.T) {
	dir := newProject(t)
	p := &prompt.Scripted{CancelOn: "Which OAuth provider?"}

	_, err := execute(t, testEnv(dir, p, nil), "add", "oauth", "--dir", dir)
	assert.ErrorIs(t, err, prompt.ErrCancelled)
}

func TestAdd_BadLanguageFlag(t *testing.T) {
	dir := newProject(t)
	_, err := execute(t, testEnv(dir, nil, nil), "add", "jwt", "--dir", dir, "--yes", "--lang", "cobol")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "routes", "authRoutes.js"))
}

func TestModules(t *testing.T) {
	dir := newProject(t)
	m := config.NewManifest()
	m.Record("jwt", "JavaScript", "app.js")
	require.NoError(t, m.Save(dir))

	out, err := execute(t, testEnv(dir, nil, nil), "modules", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Feature Modules")
	assert.Contains(t, out, "Starter Projects")
	assert.Contains(t, out, "●  jwt")
	assert.Contains(t, out, "○  google-oauth")
	assert.Contains(t, out, "jsonwebtoken, bcryptjs, dotenv")
}

func TestInit_DryRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "api")

	out, err := execute(t, testEnv(dir, nil, nil), "init", dir, "--yes", "--dry-run")
	require.NoError(t, err)

	assert.NoDirExists(t, dir)
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "+ package.json")
}

func TestEnviron(t *testing.T) {
	got := environ([]string{"npm_config_user_agent=pnpm/9.1.0 node/v20", "EMPTY=", "BROKEN"})
	assert.Equal(t, map[string]string{
		"npm_config_user_agent": "pnpm/9.1.0 node/v20",
		"EMPTY":                 "",
	}, got)
}
