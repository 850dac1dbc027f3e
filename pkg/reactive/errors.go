package reactive

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotTrackable is returned when a task body asks the tracker to track a
// value that cannot supply a subscription manager. Tracking such a value is
// a programming error; once it happens, further tracking calls in the same
// run are refused so a half-recorded dependency set never looks valid.
var ErrNotTrackable = errors.New("loom: cannot track value without a subscription manager")

// ErrTrackingHalted is returned by tracker calls after a tracking misuse
// already occurred during the current run.
var ErrTrackingHalted = errors.New("loom: tracking halted after earlier misuse in this run")

// ErrResourceTimeout is the synthetic rejection installed when a resource's
// timeout elapses before its body settles.
var ErrResourceTimeout = errors.New("loom: resource timed out")

// ErrSignalImmutable is returned when Set is called on a signal that only
// its owning computed task may write.
var ErrSignalImmutable = errors.New("loom: signal is immutable")

// ErrBadTaskToken is returned when a serialized task token sequence cannot
// be decoded.
var ErrBadTaskToken = errors.New("loom: malformed task token")

// ErrBodyNotResolved is returned when a task body reference cannot be
// resolved to a callable of the expected shape.
var ErrBodyNotResolved = errors.New("loom: task body could not be resolved")

// ErrorSink receives failures that crossed a task boundary.
//
// HandleError is called once per failed run for plain, visible, computed and
// resource bodies. LogError is used only for failures inside cleanup
// callbacks, which are swallowed and never surface to the host.
type ErrorSink interface {
	HandleError(err error, host *Element)
	LogError(err error)
}

// slogSink is the default ErrorSink. It reports everything through a
// structured logger and never panics.
type slogSink struct {
	logger *slog.Logger
}

func (s *slogSink) HandleError(err error, host *Element) {
	if host != nil {
		s.logger.Error("task failed", "error", err, "host", host.Name())
		return
	}
	s.logger.Error("task failed", "error", err)
}

func (s *slogSink) LogError(err error) {
	s.logger.Error("cleanup failed", "error", err)
}

// recoveredError converts a recovered panic value into an error.
func recoveredError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("loom: panic: %v", v)
}
