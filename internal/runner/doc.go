package runner

// Package runner fans one git invocation out across many repository
// checkouts, bounded by a concurrency cap, and reassembles the per-target
// output lines in discovery order no matter when the processes finish.
//
// Data flow:
//
//	caller                 scheduler                 emitter
//	  |                        |                        |
//	  | Run(targets, build) -->| Start() per target     |
//	  |                        | (<= Jobs running)      |
//	  |                        |---- indexed outcome -->| buffer until
//	  |                        |                        | index is next,
//	  |                        |                        | then format+print
//	  |<------- error summary -|                        |
//
// Two interchangeable schedulers sit behind Run. StrategySpawn keeps one
// goroutine per target blocked on a semaphore permit; StrategyPoll keeps a
// single control loop polling the active set. The emitter and the external
// contract are shared, only the admission mechanism differs.
//
// Invariants:
//   - at most Options.Jobs processes run at any instant (0 = unlimited)
//   - exactly one Outcome per target, start failures included
//   - emission order is target order, completion order is unconstrained
//   - a start failure neither deadlocks the run nor holds a slot
