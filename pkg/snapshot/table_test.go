package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInternIsStable(t *testing.T) {
	table := NewTable()
	a := &struct{ name string }{"a"}
	b := &struct{ name string }{"b"}

	tokA := table.Intern(a)
	tokB := table.Intern(b)

	assert.NotEqual(t, tokA, tokB)
	assert.Equal(t, tokA, table.Intern(a), "re-interning must return the same token")
	assert.Equal(t, 2, table.Len())

	got, ok := table.Lookup(tokA)
	require.True(t, ok)
	assert.Same(t, a, got)

	tok, ok := table.Ref(b)
	require.True(t, ok)
	assert.Equal(t, tokB, tok)
}

func TestTableUnknownLookups(t *testing.T) {
	table := NewTable()

	_, ok := table.Lookup("nope")
	assert.False(t, ok)

	_, ok = table.Ref(&struct{}{})
	assert.False(t, ok)
}

func TestTableBind(t *testing.T) {
	table := NewTable()
	a := &struct{ name string }{"a"}
	b := &struct{ name string }{"b"}

	require.NoError(t, table.Bind("5", a))
	got, ok := table.Lookup("5")
	require.True(t, ok)
	assert.Same(t, a, got)

	// Re-binding the same object is a no-op; a different object is a
	// conflict.
	assert.NoError(t, table.Bind("5", a))
	assert.Error(t, table.Bind("5", b))
}
