// Package app is the shell started by the orbit command. Its widgets are
// headless: views are descriptors loaded from a directory.
package app

import (
	"context"
	"fmt"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/commands"
	"github.com/centraunit/orbit/config"
	"github.com/centraunit/orbit/ui"
)

// Registration paths of the shell widgets.
const (
	StatusPath = "hud/status"
	AboutPath  = "windows/about"
	HintPath   = "tooltips/hint"
)

// OpenAbout opens the about window.
type OpenAbout struct{}

// ShowHint shows Text in a tooltip, replacing the current one.
type ShowHint struct {
	Text string
}

// App configures a setup with the command router, the presentation services
// and the shell widgets.
type App struct {
	version string
	cfg     *config.Config
	loader  ui.Loader

	router   *commands.Router
	registry *ui.Registry
}

// New creates the shell. A nil cfg uses the defaults.
func New(cfg *config.Config, version string, loader ui.Loader) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if loader == nil {
		loader = DirLoader("")
	}
	return &App{version: version, cfg: cfg, loader: loader}
}

// Router returns the command router, nil before OnAwake.
func (a *App) Router() *commands.Router { return a.router }

// Registry returns the widget registry, nil before OnAwake.
func (a *App) Registry() *ui.Registry { return a.registry }

func (a *App) OnAwake(s *orbit.Setup) error {
	router, err := commands.Install(s)
	if err != nil {
		return fmt.Errorf("failed to install command router: %w", err)
	}
	registry, err := ui.Install(s, ui.NewLoaderProvider(a.loader, s.Logger()))
	if err != nil {
		return fmt.Errorf("failed to install presentation services: %w", err)
	}
	a.router = router
	a.registry = registry

	ui.Register[StatusHud](registry, StatusPath)
	ui.Register[AboutWindow](registry, AboutPath)
	ui.Register[HintTooltip](registry, HintPath)

	commands.Map[OpenAbout](router).RegisterCommand(func(*orbit.Lifetime) commands.Command {
		return &openAboutCommand{version: a.version}
	}, false)
	commands.Map[ShowHint](router).RegisterCommand(func(*orbit.Lifetime) commands.Command {
		return &showHintCommand{}
	}, false)
	return nil
}

func (a *App) OnConfigure(s *orbit.Setup) error {
	for _, name := range a.cfg.ApplyUI(a.registry) {
		s.Logger().W("view override matches no widget", "name", name)
	}
	return nil
}

func (a *App) OnStart(s *orbit.Setup) error {
	huds, err := orbit.Resolve[*ui.HudService](s)
	if err != nil {
		return err
	}
	status := Status{Version: a.version, Strategy: s.Options().InitializationStrategy().String()}
	if _, err := huds.Open(orbit.TypeOf[*StatusHud](), status, nil); err != nil {
		return fmt.Errorf("failed to open status hud: %w", err)
	}
	s.Logger().I("shell started", "version", a.version)
	return nil
}

type openAboutCommand struct {
	Windows *ui.WindowService `inject:""`
	version string
}

func (c *openAboutCommand) Execute(context.Context) error {
	_, err := c.Windows.Open(orbit.TypeOf[*AboutWindow](), About{Version: c.version}, nil)
	return err
}

type showHintCommand struct {
	Message  ShowHint           `inject:""`
	Tooltips *ui.TooltipService `inject:""`
}

func (c *showHintCommand) Execute(context.Context) error {
	_, err := c.Tooltips.Open(orbit.TypeOf[*HintTooltip](), Hint{Text: c.Message.Text}, nil)
	return err
}
