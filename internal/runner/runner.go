package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Target is one repository checkout a git command will run against.
// Ordering of the targets slice is the ordering of the output.
type Target struct {
	Name string // short display name used for the output label
	Path string // checkout path, opaque to the runner
}

// Scheme forces a remote URL scheme for the spawned git processes.
type Scheme int

const (
	SchemeDefault Scheme = iota // keep whatever the repository is configured with
	SchemeSSH                   // rewrite https://github.com/ to git@github.com:
	SchemeHTTPS                 // rewrite git@github.com: to https://github.com/
)

// Outcome is the captured result of one target's process. A non-zero git
// exit status is data, not an error: Err is set only when the process could
// not be started or its output could not be collected.
type Outcome struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

// Handle is a started process. Poll never blocks, Wait blocks until the
// process exited and both pipes are drained. Wait must be called at most
// once and only after Poll reported completion or right away.
type Handle interface {
	Poll() (done bool, err error)
	Wait() Outcome
}

// Command describes one invocation against one target. Render must return
// the same invocation Start would execute, it is what dry-run prints.
type Command interface {
	Render(scheme Scheme) string
	Start(ctx context.Context, scheme Scheme) (Handle, error)
}

// Builder constructs the command for a target. Called exactly once per
// target, from the scheduling goroutine or from a worker goroutine, so it
// must not share mutable state.
type Builder func(Target) Command

// Formatter turns a fully captured outcome into one display line. It is
// called exactly once per outcome, in emission order.
type Formatter interface {
	Format(Outcome) string
}

// FormatterFunc adapts a plain function to the Formatter interface.
type FormatterFunc func(Outcome) string

func (f FormatterFunc) Format(o Outcome) string { return f(o) }

// Strategy selects the scheduling mechanism. Both honor the same contract:
// at most Jobs processes running at any instant and exactly one outcome per
// target, emitted in target order.
type Strategy int

const (
	// StrategyAuto spawns everything at once when the cap does not bind,
	// and polls otherwise.
	StrategyAuto Strategy = iota
	// StrategyPoll runs a single control loop which polls the active set
	// and admits the next target the moment a slot frees.
	StrategyPoll
	// StrategySpawn starts one goroutine per target, gated on a counting
	// semaphore sized to the cap.
	StrategySpawn
)

// Options is the immutable per-run configuration.
type Options struct {
	DryRun   bool
	Scheme   Scheme
	Jobs     int // max concurrently running processes, 0 means unlimited
	Strategy Strategy
}

// pollInterval is the pause between poll passes while processes are still
// running. Smaller values lower emission latency at the cost of CPU,
// 5ms has proven a reasonable middle ground.
const pollInterval = 5 * time.Millisecond

// Run executes build(target) for every target and writes one line per
// target to w, in target order, no matter in which order the processes
// finish. In dry-run mode it only renders the commands. The returned error
// reports targets which failed to start or whose output could not be
// collected; git's own non-zero exits never fail the run.
func Run(ctx context.Context, w io.Writer, opts Options, targets []Target, build Builder, format Formatter) error {
	if opts.DryRun {
		for _, t := range targets {
			fmt.Fprintln(w, build(t).Render(opts.Scheme))
		}
		return nil
	}

	em := newEmitter(w, format)

	switch pick(opts, len(targets)) {
	case StrategySpawn:
		runSpawn(ctx, opts, targets, build, em)
	default:
		runPoll(ctx, opts, targets, build, em)
	}

	if em.failed > 0 {
		return fmt.Errorf("%d of %d repositories failed", em.failed, len(targets))
	}
	return nil
}

// pick resolves StrategyAuto: when the cap does not bind every process can
// start immediately, so the thread-per-target variant is the simpler one;
// a binding cap is better served by the polling loop which admits the next
// target the instant a slot frees.
func pick(opts Options, n int) Strategy {
	if opts.Strategy != StrategyAuto {
		return opts.Strategy
	}
	if opts.Jobs == 0 || opts.Jobs >= n {
		return StrategySpawn
	}
	return StrategyPoll
}

type active struct {
	index  int
	target Target
	handle Handle
}

// runPoll is the single-threaded cooperative scheduler. It owns all mutable
// state (active set, pending cursor), so no locking is involved.
func runPoll(ctx context.Context, opts Options, targets []Target, build Builder, em *emitter) {
	limit := opts.Jobs
	if limit <= 0 || limit > len(targets) {
		limit = len(targets)
	}

	var (
		running []active
		next    int
	)

	// admit fills free slots from the pending queue. A start failure is
	// recorded immediately and never occupies a slot.
	admit := func() {
		for next < len(targets) && len(running) < limit {
			i, t := next, targets[next]
			next++
			h, err := build(t).Start(ctx, opts.Scheme)
			if err != nil {
				slog.DebugContext(ctx, "start failed", "target", t.Name, "err", err)
				em.emit(indexed{index: i, target: t, outcome: Outcome{Err: err}})
				continue
			}
			running = append(running, active{index: i, target: t, handle: h})
		}
	}

	admit()
	for len(running) > 0 || next < len(targets) {
		n := 0
		for _, p := range running {
			done, err := p.handle.Poll()
			switch {
			case err != nil:
				em.emit(indexed{index: p.index, target: p.target, outcome: Outcome{Err: err}})
			case done:
				em.emit(indexed{index: p.index, target: p.target, outcome: p.handle.Wait()})
			default:
				running[n] = p
				n++
			}
		}
		running = running[:n]

		admit()

		if len(running) > 0 {
			time.Sleep(pollInterval)
		}
	}
}

// runSpawn starts one goroutine per target. Each blocks on a semaphore
// permit before launching its process, so at most limit processes run at
// once even though all goroutines are live. Outcomes funnel through a
// buffered channel into the emitter, which restores target order.
func runSpawn(ctx context.Context, opts Options, targets []Target, build Builder, em *emitter) {
	limit := int64(opts.Jobs)
	if limit <= 0 || limit > int64(len(targets)) {
		limit = int64(len(targets))
	}
	if limit == 0 {
		return
	}

	sem := semaphore.NewWeighted(limit)
	results := make(chan indexed, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- indexed{index: i, target: t, outcome: Outcome{Err: err}}
				return nil
			}
			defer sem.Release(1)

			h, err := build(t).Start(ctx, opts.Scheme)
			if err != nil {
				slog.DebugContext(ctx, "start failed", "target", t.Name, "err", err)
				results <- indexed{index: i, target: t, outcome: Outcome{Err: err}}
				return nil
			}
			results <- indexed{index: i, target: t, outcome: h.Wait()}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	for r := range results {
		em.emit(r)
	}
}
