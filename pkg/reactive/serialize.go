package reactive

import (
	"fmt"
	"strconv"
	"strings"
)

// RefTable resolves objects to opaque reference tokens and back. The engine
// does not own the table; the host's pause/resume layer does. Tokens must
// not contain whitespace.
type RefTable interface {
	// Ref returns the token for v, reporting false when v is unknown.
	Ref(v any) (string, bool)

	// Lookup returns the object for token, reporting false when unknown.
	Lookup(token string) (any, bool)
}

// EncodeTask encodes a task's identity as a whitespace-separated token
// sequence:
//
//	flags index bodyRef hostRef [stateRef]
//
// flags and index are base-36 integers; the refs are opaque tokens resolved
// through the table. The body is never executed.
func EncodeTask(t *Task, refs RefTable) (string, error) {
	bodyTok, ok := refs.Ref(t.body)
	if !ok {
		return "", fmt.Errorf("loom: no ref for task %d body", t.index)
	}
	hostTok, ok := refs.Ref(t.el)
	if !ok {
		return "", fmt.Errorf("loom: no ref for task %d host", t.index)
	}

	parts := []string{
		strconv.FormatUint(uint64(t.Flags()), 36),
		strconv.FormatInt(int64(t.index), 36),
		bodyTok,
		hostTok,
	}

	if t.state != nil {
		stateTok, ok := refs.Ref(t.state)
		if !ok {
			return "", fmt.Errorf("loom: no ref for task %d state", t.index)
		}
		parts = append(parts, stateTok)
	}

	return strings.Join(parts, " "), nil
}

// DecodeTask reverses EncodeTask, reconstructing a Task value without
// executing its body. The decoded task is not attached to its host element;
// the resume layer does that so subscriptions can be rebuilt without
// replaying the program.
func DecodeTask(s string, refs RefTable) (*Task, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 && len(fields) != 5 {
		return nil, fmt.Errorf("%w: expected 4 or 5 tokens, got %d", ErrBadTaskToken, len(fields))
	}

	rawFlags, err := strconv.ParseUint(fields[0], 36, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: flags %q", ErrBadTaskToken, fields[0])
	}
	flags := TaskFlags(rawFlags)

	kind, ok := kindFromFlags(flags)
	if !ok {
		return nil, fmt.Errorf("%w: flags %q carry no kind", ErrBadTaskToken, fields[0])
	}

	index, err := strconv.ParseInt(fields[1], 36, 64)
	if err != nil || index < 0 {
		return nil, fmt.Errorf("%w: index %q", ErrBadTaskToken, fields[1])
	}

	bodyObj, ok := refs.Lookup(fields[2])
	if !ok {
		return nil, fmt.Errorf("%w: unknown body ref %q", ErrBadTaskToken, fields[2])
	}
	body, ok := bodyObj.(*BodyRef)
	if !ok {
		return nil, fmt.Errorf("%w: body ref %q is not a body", ErrBadTaskToken, fields[2])
	}

	hostObj, ok := refs.Lookup(fields[3])
	if !ok {
		return nil, fmt.Errorf("%w: unknown host ref %q", ErrBadTaskToken, fields[3])
	}
	host, ok := hostObj.(*Element)
	if !ok {
		return nil, fmt.Errorf("%w: host ref %q is not an element", ErrBadTaskToken, fields[3])
	}

	var state any
	if len(fields) == 5 {
		state, ok = refs.Lookup(fields[4])
		if !ok {
			return nil, fmt.Errorf("%w: unknown state ref %q", ErrBadTaskToken, fields[4])
		}
	}

	switch kind {
	case TaskComputed:
		if _, ok := state.(*Signal); !ok {
			return nil, fmt.Errorf("%w: computed task without signal state", ErrBadTaskToken)
		}
	case TaskResource:
		if _, ok := state.(*ResourceState); !ok {
			return nil, fmt.Errorf("%w: resource task without resource state", ErrBadTaskToken)
		}
	}

	t := newTask(kind, int(index), host, body, state)
	t.dirty.Store(flags&FlagDirty != 0)
	t.isCleanup.Store(flags&FlagCleanup != 0)
	return t, nil
}
