package mock

import (
	"github.com/centraunit/orbit/widgets"
)

// Panel is the view type used by the widget doubles.
type Panel struct {
	Name string
}

// LabelModel is the model of Label.
type LabelModel struct {
	Text string
}

// Label carries a model and a view and journals every hook as
// "<name>.<Hook>".
type Label struct {
	widgets.WithModelView[LabelModel, *Panel]
	Name    string
	Journal *Journal
}

func (l *Label) record(hook string) {
	if l.Journal != nil {
		l.Journal.Add(l.Name + "." + hook)
	}
}

func (l *Label) OnInitialize()        { l.record("OnInitialize") }
func (l *Label) OnReady()             { l.record("OnReady") }
func (l *Label) OnClose()             { l.record("OnClose") }
func (l *Label) OnBeforeModelChange() { l.record("OnBeforeModelChange") }
func (l *Label) OnAfterModelChanged() { l.record("OnAfterModelChanged") }
func (l *Label) OnViewAdded()         { l.record("OnViewAdded") }
func (l *Label) OnViewBeforeRemove()  { l.record("OnViewBeforeRemove") }
func (l *Label) OnViewAfterRemoved()  { l.record("OnViewAfterRemoved") }

// Frame has no model or view contract; it is ready once initialized.
type Frame struct {
	widgets.Node
	Name    string
	Journal *Journal
}

func (f *Frame) record(hook string) {
	if f.Journal != nil {
		f.Journal.Add(f.Name + "." + hook)
	}
}

func (f *Frame) OnInitialize() { f.record("OnInitialize") }
func (f *Frame) OnReady()      { f.record("OnReady") }
func (f *Frame) OnClose()      { f.record("OnClose") }

// Badge carries only a view.
type Badge struct {
	widgets.WithView[*Panel]
	Name    string
	Journal *Journal
}

func (b *Badge) OnReady() {
	if b.Journal != nil {
		b.Journal.Add(b.Name + ".OnReady")
	}
}

func (b *Badge) OnClose() {
	if b.Journal != nil {
		b.Journal.Add(b.Name + ".OnClose")
	}
}

// Counter carries only a model.
type Counter struct {
	widgets.WithModel[int]
	Journal *Journal `inject:"optional"`
}
