package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loom-ui/loom/pkg/reactive"
	"github.com/loom-ui/loom/pkg/snapshot"
)

// App bundles the reactive runtime of one session: the container, the
// scheduler the host flushes, the reference table binding the app's stable
// objects for pause/resume, and the mutation targets clients may address by
// name.
type App struct {
	Container *reactive.Container
	Scheduler *reactive.FlushScheduler
	Table     *snapshot.Table

	// Targets maps client-addressable names to *reactive.Signal or
	// *reactive.Store values.
	Targets map[string]any
}

// AppFactory builds the runtime for a new session.
type AppFactory func(sessionID string) (*App, error)

// ErrUnknownTarget reports a mutation addressed to a name the app never
// registered.
var ErrUnknownTarget = errors.New("loom: unknown mutation target")

// Session is one client's reactive runtime. Mutations and flushes are
// serialized per session; two connections to the same session never
// interleave half-applied batches.
type Session struct {
	id     string
	app    *App
	logger *slog.Logger

	mu sync.Mutex
}

func newSession(id string, app *App, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		app:    app,
		logger: logger.With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// App returns the session's runtime.
func (s *Session) App() *App { return s.app }

// Mutation is one client-requested state change.
type Mutation struct {
	Op     string `json:"op"`
	Target string `json:"target,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// Reply is the host's answer to one client message.
type Reply struct {
	Op    string `json:"op"`
	Ran   int    `json:"ran,omitempty"`
	Error string `json:"error,omitempty"`
}

// Apply performs one mutation and flushes the scheduler, returning how many
// tasks ran.
func (s *Session) Apply(ctx context.Context, mut Mutation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.app.Targets[mut.Target]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, mut.Target)
	}

	var err error
	switch mut.Op {
	case "set":
		err = s.applySet(target, mut)
	case "delete":
		err = s.applyDelete(target, mut)
	default:
		err = fmt.Errorf("loom: unknown mutation op %q", mut.Op)
	}
	if err != nil {
		return 0, err
	}

	return s.app.Scheduler.Flush(ctx, s.app.Container), nil
}

func (s *Session) applySet(target any, mut Mutation) error {
	switch v := target.(type) {
	case *reactive.Signal:
		return v.Set(mut.Value)
	case *reactive.Store:
		if mut.Key == "" {
			return fmt.Errorf("loom: store mutation %q needs a key", mut.Target)
		}
		v.Set(mut.Key, mut.Value)
		return nil
	default:
		return fmt.Errorf("%w: %q is not mutable", ErrUnknownTarget, mut.Target)
	}
}

func (s *Session) applyDelete(target any, mut Mutation) error {
	st, ok := target.(*reactive.Store)
	if !ok {
		return fmt.Errorf("loom: delete needs a store target, %q is not one", mut.Target)
	}
	if mut.Key == "" {
		return fmt.Errorf("loom: store mutation %q needs a key", mut.Target)
	}
	st.Delete(mut.Key)
	return nil
}

// Flush runs the session's pending dirty tasks.
func (s *Session) Flush(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app.Scheduler.Flush(ctx, s.app.Container)
}

// Pause flushes outstanding work and encodes the session's task graph.
func (s *Session) Pause(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.app.Scheduler.Flush(ctx, s.app.Container)
	return snapshot.Pause(s.app.Container, s.app.Table)
}
