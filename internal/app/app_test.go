package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/config"
	"github.com/centraunit/orbit/internal/app"
	"github.com/centraunit/orbit/ui"
)

func install(t *testing.T, cfg *config.Config, loader ui.Loader) (*app.App, *orbit.Setup) {
	t.Helper()
	setup := orbit.NewSetup(orbit.Eternal, orbit.WithOptions(cfg.BuilderOptions()))
	t.Cleanup(setup.Terminate)

	shell := app.New(cfg, "1.2.3", loader)
	require.NoError(t, orbit.Install(context.Background(), shell, setup))
	return shell, setup
}

func TestShellOpensStatusHud(t *testing.T) {
	cfg := config.Default()
	cfg.Services.Strategy = orbit.Sequential
	_, setup := install(t, cfg, nil)

	huds, err := orbit.Resolve[*ui.HudService](setup)
	require.NoError(t, err)

	var hud *app.StatusHud
	require.Eventually(t, func() bool {
		var ok bool
		hud, ok = ui.Get[*app.StatusHud](huds)
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, app.Status{Version: "1.2.3", Strategy: "sequential"}, hud.Model())
	assert.Equal(t, app.StatusPath, hud.View().Path)
	assert.True(t, hud.IsReady())
}

func TestShellCommandsOpenWidgets(t *testing.T) {
	cfg := config.Default()
	cfg.UI.Windows = map[string]config.ViewConfig{"aboutwindow": {Fullscreen: true}}
	cfg.UI.Tooltips = map[string]config.ViewConfig{"missing": {Path: "nowhere"}}
	shell, setup := install(t, cfg, nil)
	ctx := context.Background()

	windows, err := orbit.Resolve[*ui.WindowService](setup)
	require.NoError(t, err)
	tooltips, err := orbit.Resolve[*ui.TooltipService](setup)
	require.NoError(t, err)

	require.NoError(t, shell.Router().Tell(ctx, app.OpenAbout{}))
	require.Eventually(t, func() bool { return len(windows.Opened()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, windows.HasFullscreen())
	about := windows.Opened()[0].Widget().(*app.AboutWindow)
	assert.Equal(t, "1.2.3", about.Model().Version)

	require.NoError(t, shell.Router().Tell(ctx, app.ShowHint{Text: "first"}))
	first := tooltips.Current()
	require.NotNil(t, first)
	require.NoError(t, shell.Router().Tell(ctx, app.ShowHint{Text: "second"}))
	assert.True(t, first.IsClosed())

	require.Eventually(t, func() bool {
		cur := tooltips.Current()
		return cur != nil && cur.State() == ui.Active
	}, time.Second, 5*time.Millisecond)
	hint := tooltips.Current().Widget().(*app.HintTooltip)
	assert.Equal(t, "second", hint.Model().Text)
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "windows"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "windows", "about.yaml"), []byte("title: About orbit\nwidth: 320\n"), 0o644))

	load := app.DirLoader(dir)
	viewType := orbit.TypeOf[*app.Descriptor]()

	view, release, err := load(context.Background(), app.AboutPath, viewType)
	require.NoError(t, err)
	assert.Nil(t, release)
	assert.Equal(t, &app.Descriptor{Path: app.AboutPath, Title: "About orbit", Width: 320}, view)

	_, _, err = load(context.Background(), app.HintPath, viewType)
	assert.ErrorContains(t, err, "not found")

	_, _, err = load(context.Background(), app.AboutPath, orbit.TypeOf[string]())
	assert.Error(t, err)
}

func TestShellFailsOnMissingViews(t *testing.T) {
	_, setup := install(t, config.Default(), app.DirLoader(t.TempDir()))

	huds, err := orbit.Resolve[*ui.HudService](setup)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(huds.Opened()) == 0 && len(huds.Queue().Pending()) == 0
	}, time.Second, 5*time.Millisecond)
}
