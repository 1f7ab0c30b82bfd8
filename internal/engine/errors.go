package engine

import "github.com/pkg/errors"

// Error kinds. Callers classify with errors.Is; the wrapped message carries
// the detail.
//
// ErrInvalidArgument and ErrNotFound are expected and caused by callers. The
// remaining kinds guard internal invariants and must never surface through
// the public API.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStaleTimestamp         = errors.New("stale timestamp")
	ErrQuantityExceeded       = errors.New("quantity exceeded")
	ErrEngineClosed           = errors.New("engine is shut down")
)

// must panics on a broken internal invariant. The book cannot continue
// from a half-applied mutation.
func must(err error) {
	if err != nil {
		panic(errors.Wrap(err, "order book invariant violated"))
	}
}
