// Package snapshot pauses and resumes a reactive container. Pause encodes
// every live task into an opaque token sequence and resume reconstructs the
// tasks without replaying their bodies; the host re-registers its stable
// objects (elements, body references, task state) in a reference table under
// the tokens the paused side allocated.
//
// Snapshots are stored through the Store interface; MemoryStore keeps them
// in-process and S3Store persists them to an S3 bucket.
package snapshot
