package snapshot

import (
	"fmt"
	"strconv"
	"sync"
)

// Table is a bidirectional reference table mapping engine objects to the
// opaque tokens used in serialized task records. The pausing side allocates
// tokens with Intern; the resuming side registers its reconstructed objects
// under the known tokens with Bind. Tokens are base-36 counters and never
// contain whitespace.
type Table struct {
	mu       sync.Mutex
	next     uint64
	toToken  map[any]string
	toObject map[string]any
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		toToken:  make(map[any]string),
		toObject: make(map[string]any),
	}
}

// Intern returns the token for v, allocating one on first sight.
func (t *Table) Intern(v any) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tok, ok := t.toToken[v]; ok {
		return tok
	}
	tok := strconv.FormatUint(t.next, 36)
	t.next++
	t.toToken[v] = tok
	t.toObject[tok] = v
	return tok
}

// Bind registers v under a token allocated by the pausing side. Binding a
// token that already resolves to a different object is an error.
func (t *Table) Bind(token string, v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.toObject[token]; ok && existing != v {
		return fmt.Errorf("loom: snapshot token %q already bound", token)
	}
	t.toToken[v] = token
	t.toObject[token] = v
	return nil
}

// Ref implements reactive.RefTable.
func (t *Table) Ref(v any) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tok, ok := t.toToken[v]
	return tok, ok
}

// Lookup implements reactive.RefTable.
func (t *Table) Lookup(token string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.toObject[token]
	return v, ok
}

// Len reports the number of interned objects.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.toObject)
}
