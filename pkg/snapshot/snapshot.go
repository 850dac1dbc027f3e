package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loom-ui/loom/pkg/reactive"
)

// Version is the snapshot wire version. Resume refuses snapshots taken under
// a different version rather than guessing at their layout.
const Version = 1

// ErrVersionMismatch reports a snapshot taken under a different wire version.
var ErrVersionMismatch = errors.New("loom: snapshot version mismatch")

// Snapshot is the serialized form of a container's task graph. Each entry in
// Tasks is one task's token sequence; bodies are referenced by token and
// never executed on either side of the trip.
type Snapshot struct {
	Version int       `json:"version"`
	TakenAt time.Time `json:"takenAt"`
	Tasks   []string  `json:"tasks"`
}

// Pause encodes every live task in the container. Objects not yet in the
// table are interned, so a fresh table works; the caller keeps the table to
// translate tokens back on resume.
func Pause(c *reactive.Container, refs *Table) (*Snapshot, error) {
	snap := &Snapshot{
		Version: Version,
		TakenAt: time.Now().UTC(),
	}

	for _, el := range c.Elements() {
		refs.Intern(el)
		for _, t := range el.Tasks() {
			if t.Destroyed() {
				continue
			}
			refs.Intern(t.Body())
			if st := t.State(); st != nil {
				refs.Intern(st)
			}

			enc, err := reactive.EncodeTask(t, refs)
			if err != nil {
				return nil, fmt.Errorf("loom: pause element %q: %w", el.Name(), err)
			}
			snap.Tasks = append(snap.Tasks, enc)
		}
	}

	return snap, nil
}

// Resume reconstructs the snapshot's tasks and attaches each to its host
// element. The table must already resolve every token, which the host
// guarantees by binding its reconstructed elements, bodies and task state
// before resuming. No task body runs here; decoded-dirty tasks are handed to
// the container's scheduler and run on the next flush.
func Resume(snap *Snapshot, refs *Table) error {
	if snap.Version != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, snap.Version, Version)
	}

	for i, enc := range snap.Tasks {
		t, err := reactive.DecodeTask(enc, refs)
		if err != nil {
			return fmt.Errorf("loom: resume task %d: %w", i, err)
		}
		t.Host().AttachDecoded(t)
	}
	return nil
}

// Marshal encodes the snapshot as JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("loom: decode snapshot: %w", err)
	}
	return &s, nil
}
