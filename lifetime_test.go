package orbit_test

import (
	"testing"

	"github.com/centraunit/orbit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifetimeRunsActionsInReverseOrder(t *testing.T) {
	def := orbit.Define(orbit.Eternal, "test")
	var order []int
	for i := 0; i < 3; i++ {
		def.Lifetime().AddAction(func() { order = append(order, i) })
	}

	def.Terminate()
	def.Terminate()

	assert.Equal(t, []int{2, 1, 0}, order)
	assert.True(t, def.IsTerminated())
}

func TestLifetimeTerminatesChildrenAfterActions(t *testing.T) {
	parent := orbit.Define(nil, "parent")
	child := parent.Lifetime().DefineNested("child")
	var order []string
	child.Lifetime().AddAction(func() { order = append(order, "child") })
	parent.Lifetime().AddAction(func() { order = append(order, "parent") })

	parent.Terminate()

	assert.Equal(t, []string{"parent", "child"}, order)
	assert.True(t, child.IsTerminated())
}

func TestLifetimeAddActionAfterTerminationRunsImmediately(t *testing.T) {
	def := orbit.Define(orbit.Eternal)
	def.Terminate()

	ran := false
	def.Lifetime().AddAction(func() { ran = true })
	assert.True(t, ran)
}

func TestLifetimeDefineUnderTerminatedParent(t *testing.T) {
	parent := orbit.Define(orbit.Eternal)
	parent.Terminate()

	child := orbit.Define(parent.Lifetime())
	assert.True(t, child.IsTerminated())

	nested := parent.Lifetime().DefineNested()
	assert.True(t, nested.IsTerminated())
}

func TestLifetimeContextCancelledOnTermination(t *testing.T) {
	def := orbit.Define(orbit.Eternal)
	ctx := def.Lifetime().Context()
	require.NoError(t, ctx.Err())

	def.Terminate()

	<-def.Lifetime().Done()
	assert.Error(t, ctx.Err())
}

func TestLifetimeChildTerminationDoesNotAffectParent(t *testing.T) {
	parent := orbit.Define(orbit.Eternal)
	child := parent.Lifetime().DefineNested()

	child.Terminate()

	assert.False(t, parent.IsTerminated())
	parent.Terminate()
	assert.True(t, child.IsTerminated())
}

func TestIntersectionTerminatesWithEitherParent(t *testing.T) {
	t.Run("first", func(t *testing.T) {
		a, b := orbit.Define(orbit.Eternal), orbit.Define(orbit.Eternal)
		both := orbit.Intersection(a.Lifetime(), b.Lifetime())
		a.Terminate()
		assert.True(t, both.IsTerminated())
		assert.False(t, b.IsTerminated())
	})

	t.Run("second", func(t *testing.T) {
		a, b := orbit.Define(orbit.Eternal), orbit.Define(orbit.Eternal)
		both := orbit.Intersection(a.Lifetime(), b.Lifetime())
		b.Terminate()
		assert.True(t, both.IsTerminated())
		assert.False(t, a.IsTerminated())
	})

	t.Run("already terminated", func(t *testing.T) {
		a, b := orbit.Define(orbit.Eternal), orbit.Define(orbit.Eternal)
		b.Terminate()
		both := orbit.Intersection(a.Lifetime(), b.Lifetime())
		assert.True(t, both.IsTerminated())
	})

	t.Run("own termination leaves parents alive", func(t *testing.T) {
		a, b := orbit.Define(orbit.Eternal), orbit.Define(orbit.Eternal)
		both := orbit.Intersection(a.Lifetime(), b.Lifetime())
		both.Terminate()
		assert.False(t, a.IsTerminated())
		assert.False(t, b.IsTerminated())
	})
}

func TestEternalNeverTerminates(t *testing.T) {
	def := orbit.Define(orbit.Eternal)
	def.Terminate()
	assert.False(t, orbit.Eternal.IsTerminated())
	assert.Equal(t, "Eternal", orbit.Eternal.Name())
}

func TestSignalSubscriptionFollowsLifetimes(t *testing.T) {
	owner := orbit.Define(orbit.Eternal)
	sub := orbit.Define(orbit.Eternal)
	sig := orbit.NewSignal(owner.Lifetime())

	calls := 0
	sig.Subscribe(sub.Lifetime(), func() { calls++ })
	sig.Fire()
	assert.Equal(t, 1, calls)

	sub.Terminate()
	sig.Fire()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, sig.Len())

	sig.Subscribe(orbit.Eternal, func() { calls++ })
	owner.Terminate()
	assert.Equal(t, 0, sig.Len())
	sig.Subscribe(orbit.Eternal, func() { calls++ })
	sig.Fire()
	assert.Equal(t, 1, calls)
}

func TestSignalFiresSnapshot(t *testing.T) {
	owner := orbit.Define(orbit.Eternal)
	sig := orbit.NewSignal1[string](owner.Lifetime())
	inner := orbit.Define(owner.Lifetime())

	var got []string
	sig.Subscribe(inner.Lifetime(), func(v string) {
		got = append(got, "first:"+v)
		inner.Terminate()
		sig.Subscribe(owner.Lifetime(), func(v string) { got = append(got, "late:"+v) })
	})
	sig.Subscribe(owner.Lifetime(), func(v string) { got = append(got, "second:"+v) })

	sig.Fire("a")
	sig.Fire("b")

	assert.Equal(t, []string{"first:a", "second:a", "second:b", "late:b"}, got)
}

func TestSignal2(t *testing.T) {
	owner := orbit.Define(orbit.Eternal)
	sig := orbit.NewSignal2[string, int](owner.Lifetime())
	var name string
	var n int
	sig.Subscribe(owner.Lifetime(), func(s string, i int) { name, n = s, i })

	sig.Fire("x", 7)

	assert.Equal(t, "x", name)
	assert.Equal(t, 7, n)
}
