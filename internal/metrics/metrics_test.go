package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersAreNoopsWhenDisabled(t *testing.T) {
	Disable()
	require.False(t, IsEnabled())
	require.Nil(t, GetRegistry())

	assert.NotPanics(t, func() {
		ObservePhase("svc", "awake", time.Millisecond, nil)
		ServiceStateChanged("", "Created")
		ObserveCommand("msg", nil)
		ObserveQueueOpen("hud", OutcomeOpened, time.Millisecond)
		ObserveQueueClose("hud")
		SetQueueDepth("hud", 3)
	})
}

func TestRecordersUpdateCollectors(t *testing.T) {
	reg := InitRegistry()
	t.Cleanup(Disable)
	require.True(t, IsEnabled())
	require.Same(t, reg, GetRegistry())

	ObservePhase("clock", "awake", 10*time.Millisecond, nil)
	ObservePhase("clock", "awake", 10*time.Millisecond, errors.New("boom"))
	ObserveCommand("Save", nil)
	ObserveCommand("Save", errors.New("boom"))
	ServiceStateChanged("", "Created")
	ServiceStateChanged("Created", "Awaking")
	ObserveQueueOpen("window", OutcomeOpened, 5*time.Millisecond)
	ObserveQueueOpen("window", OutcomeCancelled, 0)
	ObserveQueueClose("window")
	SetQueueDepth("window", 2)

	c := get()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.phaseFailures.WithLabelValues("clock", "awake")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.commandsExecuted.WithLabelValues("Save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandFailures.WithLabelValues("Save")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.servicesInState.WithLabelValues("Created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.servicesInState.WithLabelValues("Awaking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queueOpens.WithLabelValues("window", OutcomeOpened)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queueOpens.WithLabelValues("window", OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queueCloses.WithLabelValues("window")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.queueDepth.WithLabelValues("window")))
}
