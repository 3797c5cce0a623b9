// Package orbit is an application runtime substrate for composing
// long-lived, hierarchically scoped components.
//
// Every component is owned by a Lifetime. Terminating a lifetime runs its
// teardown actions and then terminates its nested lifetimes, so ownership
// and teardown order always follow the lifetime tree.
//
// Services are registered on a Setup, resolved and bound into an Injector,
// then driven through a two-phase asynchronous startup (wake, then
// initialize) by an Orchestrator:
//
//	setup := orbit.NewSetup(orbit.Eternal, orbit.WithLogger(log))
//	orbit.RegisterService[*Clock](setup, &Clock{})
//	if err := orbit.Install(ctx, startup, setup); err != nil {
//		return err
//	}
//
// Command routing lives in package commands, composition nodes in package
// widgets and presentation queues in package ui.
package orbit
