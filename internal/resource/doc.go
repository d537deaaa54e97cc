// Package resource governs the shared resources of a table's worker pools.
//
// The Controller manages two resource types:
//
//   - Memory: track and limit the memory held by derived values (non-blocking, fail-fast)
//   - Workers: limit the goroutines the derivation pipeline and the similarity
//     engine run at the same time
//
// # Memory Management
//
// AcquireMemory never blocks. It returns ErrMemoryLimitExceeded when the limit
// would be exceeded; the derivation pipeline treats that as an unrecoverable
// error and aborts its generation:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	if err := rc.AcquireMemory(size); err != nil {
//	    return err
//	}
//
// # Worker Limits
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
