package reactive

import (
	"errors"
	"strings"
	"testing"
)

// testRefTable is a two-way token table for serialization tests.
type testRefTable struct {
	toToken  map[any]string
	toObject map[string]any
}

func newTestRefTable() *testRefTable {
	return &testRefTable{
		toToken:  make(map[any]string),
		toObject: make(map[string]any),
	}
}

func (r *testRefTable) add(tok string, v any) {
	r.toToken[v] = tok
	r.toObject[tok] = v
}

func (r *testRefTable) Ref(v any) (string, bool) {
	tok, ok := r.toToken[v]
	return tok, ok
}

func (r *testRefTable) Lookup(token string) (any, bool) {
	v, ok := r.toObject[token]
	return v, ok
}

func registerTask(refs *testRefTable, t *Task, prefix string) {
	refs.add(prefix+".body", t.Body())
	refs.add(prefix+".host", t.Host())
	if t.State() != nil {
		refs.add(prefix+".state", t.State())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, _, _ := newTestContainer()
	el := c.NewElement("card")

	noop := TaskFunc(func(ctx *TaskCtx) (Cleanup, error) { return nil, nil })
	plain := el.NewTask(NewBodyRef("plain", noop))
	visible := el.NewVisibleTask(NewBodyRef("visible", noop))
	computed, _ := el.NewComputed(NewBodyRef("computed", ComputedFunc(func() (any, error) { return 1, nil })))
	resource, _ := el.NewResource(NewBodyRef("resource", ResourceFunc(func(ctx *ResourceCtx) (any, error) { return 1, nil })), 0)
	cleanup := el.NewCleanupTask(NewBodyRef("cleanup", func() {}))

	refs := newTestRefTable()
	for i, task := range []*Task{plain, visible, computed, resource, cleanup} {
		registerTask(refs, task, string(rune('a'+i)))
	}

	for _, task := range []*Task{plain, visible, computed, resource, cleanup} {
		encoded, err := EncodeTask(task, refs)
		if err != nil {
			t.Fatalf("%v task: encode: %v", task.Kind(), err)
		}

		decoded, err := DecodeTask(encoded, refs)
		if err != nil {
			t.Fatalf("%v task: decode: %v", task.Kind(), err)
		}

		reencoded, err := EncodeTask(decoded, refs)
		if err != nil {
			t.Fatalf("%v task: re-encode: %v", task.Kind(), err)
		}
		if reencoded != encoded {
			t.Errorf("%v task: round trip drifted: %q != %q", task.Kind(), reencoded, encoded)
		}
	}
}

func TestDecodeRestoresIdentityWithoutExecuting(t *testing.T) {
	c, _, _ := newTestContainer()
	el := c.NewElement("card")

	bodyRuns := 0
	original, sig := el.NewComputed(NewBodyRef("derive", ComputedFunc(func() (any, error) {
		bodyRuns++
		return 1, nil
	})))

	refs := newTestRefTable()
	registerTask(refs, original, "t")

	encoded, err := EncodeTask(original, refs)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeTask(encoded, refs)
	if err != nil {
		t.Fatal(err)
	}

	if bodyRuns != 0 {
		t.Fatalf("decode executed the body %d times", bodyRuns)
	}
	if decoded.Kind() != TaskComputed {
		t.Errorf("kind = %v", decoded.Kind())
	}
	if decoded.Index() != original.Index() {
		t.Errorf("index = %d, want %d", decoded.Index(), original.Index())
	}
	if !decoded.Dirty() {
		t.Error("dirty flag lost in transit")
	}
	if decoded.Signal() != sig {
		t.Error("decoded task lost its signal identity")
	}
	if decoded.Host() != el {
		t.Error("decoded task lost its host identity")
	}
	if decoded.Body() != original.Body() {
		t.Error("decoded task lost its body reference")
	}
}

func TestDecodeRestoresCleanupFlag(t *testing.T) {
	c, _, _ := newTestContainer()
	el := c.NewElement("card")

	calls := 0
	original := el.NewCleanupTask(NewBodyRef("teardown", func() { calls++ }))

	refs := newTestRefTable()
	registerTask(refs, original, "t")

	encoded, err := EncodeTask(original, refs)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeTask(encoded, refs)
	if err != nil {
		t.Fatal(err)
	}

	c.DestroyTask(decoded)
	if calls != 1 {
		t.Errorf("decoded cleanup task did not invoke its body on destroy: %d", calls)
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	c, _, _ := newTestContainer()
	el := c.NewElement("card")
	task := el.NewTask(NewBodyRef("plain", TaskFunc(func(ctx *TaskCtx) (Cleanup, error) { return nil, nil })))

	refs := newTestRefTable()
	registerTask(refs, task, "t")

	encoded, err := EncodeTask(task, refs)
	if err != nil {
		t.Fatal(err)
	}
	fields := strings.Fields(encoded)

	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too few tokens", "1 2"},
		{"too many tokens", encoded + " x y"},
		{"bad flags", strings.Join(append([]string{"!!"}, fields[1:]...), " ")},
		{"no kind bit", strings.Join(append([]string{"0"}, fields[1:]...), " ")},
		{"bad index", fields[0] + " -1 t.body t.host"},
		{"unknown body ref", fields[0] + " " + fields[1] + " nope t.host"},
		{"unknown host ref", fields[0] + " " + fields[1] + " t.body nope"},
		{"host that is not an element", fields[0] + " " + fields[1] + " t.body t.body"},
	}

	for _, tc := range cases {
		if _, err := DecodeTask(tc.input, refs); !errors.Is(err, ErrBadTaskToken) {
			t.Errorf("%s: expected ErrBadTaskToken, got %v", tc.name, err)
		}
	}
}

func TestDecodeRejectsKindStateMismatch(t *testing.T) {
	c, _, _ := newTestContainer()
	el := c.NewElement("card")

	computed, _ := el.NewComputed(NewBodyRef("derive", ComputedFunc(func() (any, error) { return 1, nil })))

	refs := newTestRefTable()
	registerTask(refs, computed, "t")

	encoded, err := EncodeTask(computed, refs)
	if err != nil {
		t.Fatal(err)
	}

	// Strip the state token: a computed task without its signal is invalid.
	fields := strings.Fields(encoded)
	if _, err := DecodeTask(strings.Join(fields[:4], " "), refs); !errors.Is(err, ErrBadTaskToken) {
		t.Errorf("expected ErrBadTaskToken for stateless computed task, got %v", err)
	}
}

func TestAttachDecodedSchedulesDirtyTask(t *testing.T) {
	c, _, sched := newTestContainer()
	el := c.NewElement("card")

	runs := 0
	original := el.NewTask(NewBodyRef("work", TaskFunc(func(ctx *TaskCtx) (Cleanup, error) {
		runs++
		return nil, nil
	})))

	refs := newTestRefTable()
	registerTask(refs, original, "t")

	encoded, err := EncodeTask(original, refs)
	if err != nil {
		t.Fatal(err)
	}

	// Drain the original so only the resumed task is pending.
	flush(t, c, sched)
	if runs != 1 {
		t.Fatalf("expected 1 run before resume, got %d", runs)
	}

	decoded, err := DecodeTask(encoded, refs)
	if err != nil {
		t.Fatal(err)
	}
	el.AttachDecoded(decoded)

	if sched.Pending() != 1 {
		t.Fatalf("resumed dirty task not scheduled, pending=%d", sched.Pending())
	}
	flush(t, c, sched)
	if runs != 2 {
		t.Errorf("resumed task did not run, runs=%d", runs)
	}
}
