package ui_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/mock"
	"github.com/centraunit/orbit/ui"
)

func TestLoaderProvider(t *testing.T) {
	def := orbit.Define(orbit.Eternal)
	defer def.Terminate()

	gate := make(chan struct{})
	released := make(chan string, 4)
	loader := func(ctx context.Context, path string, viewType reflect.Type) (any, func(), error) {
		switch path {
		case "slow":
			<-gate
		case "broken":
			return nil, nil, errors.New("no such asset")
		}
		return &mock.Panel{Name: path}, func() { released <- path }, nil
	}

	registry := ui.NewRegistry(ui.NewLoaderProvider(loader, nil))
	ui.Register[mock.Label](registry, "slow")
	ui.Register[mock.Badge](registry, "fast")
	ui.Register[mock.Frame](registry, "broken", ui.WithProvider(ui.NewLoaderProvider(loader, nil)))
	q := ui.NewQueue(def.Lifetime(), "loader", ui.Serial, orbit.NewInjector(nil), registry, nil)

	slowOpened := false
	slow, err := ui.Open(q, nil, func(*mock.Label, error) { slowOpened = true })
	require.NoError(t, err)
	fast, err := ui.Open[*mock.Badge](q, nil, nil)
	require.NoError(t, err)

	slow.Close()
	require.Eventually(t, func() bool { return fast.State() == ui.Active }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "fast", fast.Widget().(*mock.Badge).View().Name)

	close(gate)
	select {
	case path := <-released:
		assert.Equal(t, "slow", path, "views loaded after termination are released")
	case <-time.After(time.Second):
		t.Fatal("slow view was never released")
	}
	assert.False(t, slowOpened)

	fast.Close()
	select {
	case path := <-released:
		assert.Equal(t, "fast", path)
	case <-time.After(time.Second):
		t.Fatal("fast view was never released")
	}

	errs := make(chan error, 1)
	_, err = ui.Open(q, nil, func(_ *mock.Frame, err error) { errs <- err })
	require.NoError(t, err)
	select {
	case err := <-errs:
		var providerErr *ui.ProviderError
		assert.ErrorAs(t, err, &providerErr)
	case <-time.After(time.Second):
		t.Fatal("provider error never reported")
	}
}

func TestServicesThroughSetup(t *testing.T) {
	setup := orbit.NewSetup(orbit.Eternal)
	defer setup.Terminate()

	registry, err := ui.Install(setup, mock.PanelProvider)
	require.NoError(t, err)
	ui.Register[mock.Label](registry, "window", ui.WithFullscreen())
	ui.Register[mock.Badge](registry, "badge")
	require.NoError(t, setup.AwakeServices(context.Background()))

	windows, err := orbit.Resolve[*ui.WindowService](setup)
	require.NoError(t, err)
	huds, err := orbit.Resolve[*ui.HudService](setup)
	require.NoError(t, err)
	tooltips, err := orbit.Resolve[*ui.TooltipService](setup)
	require.NoError(t, err)
	assert.Equal(t, orbit.StateWokeUp, windows.State())

	journal := &mock.Journal{}
	labelType := orbit.TypeOf[*mock.Label]()
	windows.SubscribeOnAction(setup.Lifetime(), labelType, ui.WindowOpened, func(ref *ui.Reference) {
		journal.Addf("opened:%s", ref.Name())
	})
	windows.SubscribeOnAction(setup.Lifetime(), labelType, ui.WindowClosed, func(ref *ui.Reference) {
		journal.Addf("closed:%s", ref.Name())
	})

	window, err := windows.Open(labelType, mock.LabelModel{Text: "w"}, nil)
	require.NoError(t, err)
	assert.True(t, windows.HasFullscreen())
	assert.Equal(t, "window", window.Widget().(*mock.Label).View().Name)
	_, err = windows.Open(orbit.TypeOf[*mock.Badge](), nil, nil)
	require.NoError(t, err)
	assert.Len(t, windows.Opened(), 2)

	windows.CloseAll()
	assert.Empty(t, windows.Opened())
	assert.False(t, windows.HasFullscreen())
	assert.Equal(t, []string{"opened:Label", "closed:Label"}, journal.Events())

	_, err = huds.Open(orbit.TypeOf[*mock.Badge](), nil, nil)
	require.NoError(t, err)
	badge, ok := ui.Get[*mock.Badge](huds)
	require.True(t, ok)
	assert.Equal(t, "badge", badge.View().Name)
	_, ok = ui.Get[*mock.Label](huds)
	assert.False(t, ok)

	owner := orbit.Define(setup.Lifetime())
	first, err := tooltips.WithLifetime(owner.Lifetime()).Open(orbit.TypeOf[*mock.Badge](), nil, nil)
	require.NoError(t, err)
	assert.Same(t, first, tooltips.Current())

	second, err := tooltips.Open(labelType, nil, nil)
	require.NoError(t, err)
	assert.True(t, first.IsClosed())
	assert.Same(t, second, tooltips.Current())

	third, err := tooltips.WithLifetime(owner.Lifetime()).Open(orbit.TypeOf[*mock.Badge](), nil, nil)
	require.NoError(t, err)
	assert.True(t, second.IsClosed())
	owner.Terminate()
	assert.True(t, third.IsClosed())
	assert.Nil(t, tooltips.Current())

	setup.Terminate()
	assert.Equal(t, orbit.StateTerminated, windows.State())
	assert.Nil(t, tooltips.Current())
}

func TestServicesBeforeAwake(t *testing.T) {
	windows := ui.NewWindowService()
	_, err := windows.Open(orbit.TypeOf[*mock.Label](), nil, nil)
	assert.ErrorIs(t, err, orbit.ErrNotAwake)
	assert.Nil(t, windows.Opened())
	assert.Nil(t, windows.Pending())
	assert.Nil(t, ui.NewTooltipService().Current())
}

func TestProviderContextLifetime(t *testing.T) {
	def := orbit.Define(orbit.Eternal)
	pc := ui.NewProviderContext(def.Lifetime(), &mock.Panel{})
	destroyed := 0
	pc.OnDestroyed(def.Lifetime(), func() { destroyed++ })

	def.Terminate()
	assert.True(t, pc.Lifetime().IsTerminated())
	pc.Destroy()
	assert.Zero(t, destroyed, "destruction after termination is not reported")
}
