package reactive

// Batch groups multiple mutations into a single notification phase. All
// notifications raised within fn are collected, deduplicated by subscriber
// ID, and delivered once when the outermost batch completes. A subscriber is
// therefore marked dirty at most once per batch even if several of its
// dependencies changed.
//
// Batches nest; only the outermost completion flushes.
//
// Example:
//
//	Batch(func() {
//	    profile.Set("name", "Ada")
//	    profile.Set("role", "admin")
//	})
//	// Each affected task is marked dirty once.
func Batch(fn func()) {
	ctx := getTrackingContext()
	ctx.batchDepth++

	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth == 0 {
			flushPendingDirty(ctx)
		}
	}()

	fn()
}

// flushPendingDirty deduplicates and notifies all queued subscribers.
func flushPendingDirty(ctx *trackingContext) {
	pending := ctx.pendingDirty
	ctx.pendingDirty = nil
	if len(pending) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(pending))
	for _, sub := range pending {
		id := sub.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		sub.MarkDirty()
	}
}
