// Package reactive implements the dependency-tracking and effect-execution
// engine at the core of Loom: it records which pieces of mutable state a
// task read during its last run, and re-schedules exactly the affected
// tasks when that state changes.
//
// # Core Types
//
// Signal is a single reactive cell; Store is a map-backed container with
// per-key dependency capture:
//
//	count := reactive.NewSignal(0)
//	profile := reactive.NewStore(map[string]any{"name": "Ada"})
//
// Task is the unit of re-executable work, declared on a host Element in one
// of four kinds: plain effect, visible-on-trigger effect, asynchronous
// resource, and computed derivation:
//
//	task := el.NewTask(reactive.NewBodyRef("log-count", reactive.TaskFunc(
//	    func(ctx *reactive.TaskCtx) (reactive.Cleanup, error) {
//	        n, _ := ctx.TrackValue(count)
//	        fmt.Println("count:", n)
//	        return nil, nil
//	    })))
//
// # Data Flow
//
// A mutation notifies the container's subscription manager, each subscribed
// task is marked dirty and handed to the scheduler, and a later flush runs
// the task body inside a fresh tracking context. Each run replaces the
// task's dependency set wholesale: reads from earlier runs are discarded in
// full, never merged.
//
// # Serialization
//
// A task's identity round-trips as a whitespace-separated token sequence
// (EncodeTask/DecodeTask) resolved through an external RefTable, so the
// subscription graph can be reconstructed across a serialize/resume
// boundary without replaying the program.
//
// # Concurrency
//
// Execution is single-threaded cooperative: task bodies never run in
// parallel. Resource bodies are the asynchronous path; their settlement is
// idempotent per run generation, and an optional timeout force-rejects the
// result while leaving the in-flight body to settle into the void.
package reactive
