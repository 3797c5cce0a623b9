package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/centraunit/orbit/ui"
	"github.com/centraunit/orbit/widgets"
)

// Descriptor is the view of every widget of the shell. Descriptors are
// loaded from YAML files named after the registration path.
type Descriptor struct {
	Path  string `yaml:"-"`
	Title string `yaml:"title"`
	Width int    `yaml:"width,omitempty"`
}

var descriptorType = reflect.TypeFor[*Descriptor]()

// Status is the model of the status hud.
type Status struct {
	Version  string
	Strategy string
}

// About is the model of the about window.
type About struct {
	Version string
}

// Hint is the model of a hint tooltip.
type Hint struct {
	Text string
}

// StatusHud shows the runtime version and bootstrap strategy.
type StatusHud struct {
	widgets.WithModelView[Status, *Descriptor]
}

// AboutWindow shows version information.
type AboutWindow struct {
	widgets.WithModelView[About, *Descriptor]
}

// HintTooltip shows a line of text.
type HintTooltip struct {
	widgets.WithModelView[Hint, *Descriptor]
}

// DirLoader loads descriptors from dir/<path>.yaml. With an empty dir every
// path resolves to a bare descriptor.
func DirLoader(dir string) ui.Loader {
	return func(ctx context.Context, path string, viewType reflect.Type) (any, func(), error) {
		if viewType != descriptorType {
			return nil, nil, fmt.Errorf("unsupported view type %v", viewType)
		}
		if dir == "" {
			return &Descriptor{Path: path, Title: path}, nil, nil
		}

		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)+".yaml"))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil, fmt.Errorf("view %q not found in %s", path, dir)
			}
			return nil, nil, fmt.Errorf("failed to read view %q: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		desc := &Descriptor{Path: path}
		if err := yaml.Unmarshal(data, desc); err != nil {
			return nil, nil, fmt.Errorf("failed to parse view %q: %w", path, err)
		}
		if desc.Title == "" {
			desc.Title = path
		}
		return desc, nil, nil
	}
}
