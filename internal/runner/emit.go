package runner

import (
	"fmt"
	"io"
)

const labelWidth = 24

// Label renders a target name as a fixed-width bracketed column so output
// lines align regardless of name length. Names longer than the column are
// truncated with a trailing "-..." marker.
func Label(name string) string {
	if len(name) > labelWidth {
		name = name[:labelWidth-4] + "-..."
	}
	return fmt.Sprintf("[%-*s]", labelWidth, name)
}

// indexed is the unit crossing from a scheduler into the emitter: exactly
// one per target, carrying the target's position in the original slice.
type indexed struct {
	index   int
	target  Target
	outcome Outcome
}

// emitter buffers outcomes which completed ahead of their turn and writes
// lines strictly in target order. Both schedulers call emit from a single
// goroutine, so it needs no locking.
type emitter struct {
	w       io.Writer
	format  Formatter
	next    int
	holding map[int]indexed
	failed  int
}

func newEmitter(w io.Writer, format Formatter) *emitter {
	return &emitter{
		w:       w,
		format:  format,
		holding: make(map[int]indexed),
	}
}

// emit stores the outcome and flushes the contiguous run starting at the
// next expected index. An early slow target therefore delays only the
// printing of the lines after it, never the execution behind them.
func (e *emitter) emit(r indexed) {
	e.holding[r.index] = r
	for {
		cur, ok := e.holding[e.next]
		if !ok {
			return
		}
		delete(e.holding, e.next)
		e.next++

		body := ""
		if cur.outcome.Err != nil {
			e.failed++
			body = "ERROR: " + cur.outcome.Err.Error()
		} else {
			body = e.format.Format(cur.outcome)
		}
		fmt.Fprintf(e.w, "%s %s\n", Label(cur.target.Name), body)
	}
}
