package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"sgam/internal/config"
	"sgam/internal/giveaway"
	"sgam/internal/requests"
	"sgam/internal/steamgifts/sgtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRequests = `[exact_match]
Portal 2
[any_match]
[no_match]
`

type testEnv struct {
	dir      string
	config   string
	requests string
	site     *sgtest.Site
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	site := &sgtest.Site{
		Points: 50,
		Open: []giveaway.Giveaway{
			{Title: "Portal 2", RelativeURL: "/giveaway/p2aaa/portal-2", PointCost: 10},
			{Title: "Braid", RelativeURL: "/giveaway/braid/braid", PointCost: 5},
		},
		EnteredClosed: []string{"Celeste (2 Copies)"},
	}
	srv := sgtest.NewServer(t, site)

	env := &testEnv{
		dir:      dir,
		config:   filepath.Join(dir, "sgam.yaml"),
		requests: filepath.Join(dir, "requests.txt"),
		site:     site,
	}
	content := sgtest.CookieName + "=" + sgtest.CookieValue + "\n" + sgtest.XSRFToken + "\n" + testRequests
	require.NoError(t, os.WriteFile(env.requests, []byte(content), 0600))

	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = srv.URL
	cfg.Requests.Path = env.requests
	cfg.History.Driver = "sqlite"
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Logging.Level = "error"
	require.NoError(t, cfg.Save(env.config))
	return env
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SGAM_BASE_URL", "")
	t.Setenv("SGAM_REQUESTS_FILE", "")
	t.Setenv("SGAM_HISTORY_PATH", "")
	t.Setenv("SGAM_LOG_LEVEL", "")

	verbose, dryRun, watch, importTitles, showDiff = false, false, false, false, false
	requestsPath = ""
	historyLimit = 20

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "sgam", rootCmd.Use)

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "sort", "entered", "points", "history"})
}

func TestSortCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "--config", env.config, "sort")
	require.NoError(t, err)
	assert.Contains(t, out, "1 exact, 0 any, 0 excluded")

	rf, err := requests.Load(env.requests)
	require.NoError(t, err)
	assert.Equal(t, []string{"portal 2"}, rf.ExactMatches)
}

func TestSortCommand_Diff(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "--config", env.config, "sort", "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "- Portal 2")
	assert.Contains(t, out, "+ portal 2")
	assert.Contains(t, out, "1 lines added, 1 removed")

	out, err = execute(t, "--config", env.config, "sort", "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "Requests file was already sorted")
}

func TestRunCommand_DryRun(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "--config", env.config, "run", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: 1 giveaways would be entered (10P)")
	assert.Contains(t, out, "Remaining points: 50")

	env.site.Mu.Lock()
	defer env.site.Mu.Unlock()
	assert.Empty(t, env.site.Posted)
}

func TestRunCommand_ThenHistory(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "--config", env.config, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Entered giveaway: Portal 2")
	assert.Contains(t, out, "Remaining points: 40")

	out, err = execute(t, "--config", env.config, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Portal 2")
	assert.Contains(t, out, "1 entries over 1 runs, 10P spent")
}

func TestEnteredCommand_Import(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "--config", env.config, "entered", "--import")
	require.NoError(t, err)
	assert.Contains(t, out, "Celeste")
	assert.Contains(t, out, "Added 1 titles")

	rf, err := requests.Load(env.requests)
	require.NoError(t, err)
	assert.Equal(t, []string{"celeste", "portal 2"}, rf.ExactMatches)
}

func TestPointsCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "--config", env.config, "points")
	require.NoError(t, err)
	assert.Contains(t, out, "Remaining points: 50")
}

func TestReadOnlyCommandsSkipHistory(t *testing.T) {
	env := newTestEnv(t)

	// A history path below a regular file cannot be opened.
	cfg, err := config.Load(env.config)
	require.NoError(t, err)
	cfg.History.Path = filepath.Join(env.requests, "history.db")
	require.NoError(t, cfg.Save(env.config))

	out, err := execute(t, "--config", env.config, "points")
	require.NoError(t, err)
	assert.Contains(t, out, "Remaining points: 50")

	out, err = execute(t, "--config", env.config, "entered")
	require.NoError(t, err)
	assert.Contains(t, out, "Celeste")

	_, err = execute(t, "--config", env.config, "run", "--dry-run")
	assert.Error(t, err)
}

func TestRequestsFlagOverridesConfig(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, "--config", env.config, "--requests", filepath.Join(env.dir, "missing.txt"), "sort")
	assert.ErrorIs(t, err, requests.ErrNotFound)
}

func TestInvalidConfigRejected(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte("logging:\n  level: loud\n"), 0644))

	_, err := execute(t, "--config", env.config, "sort")
	assert.Error(t, err)
}
