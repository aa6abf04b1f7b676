// package racebench runs a shared counter under different consistency policies
// and provides the small set of concurrency primitives the benchmark is built
// from.
//
// The benchmark spawns some workers that all increment one counter and reads
// the counter once every worker has joined:
//
//	value, failures, err := racebench.RunBenchmark(racebench.Atomic, 10, 10_000_000)
//	// value == 100_000_000, len(failures) == 0
//
// With Atomic, Locked or Sharded the final value is always workers*iterations.
// With None each increment is a separate read and write, so concurrent
// increments can collapse into one and the final value is usually smaller,
// but never larger.
//
// The default build keeps None inside the memory model: the read and the
// write are each an atomic access, only the increment as a whole is
// unprotected. That loses updates just like a plain integer while the package
// stays usable under the race detector. Building with the racy tag (and
// without -race) opts into a plain integer with no synchronization at all.
//
// A worker that panics is recorded as a *WorkerFailure in the result; its
// siblings keep running and the caller still gets the counter value.
//
// The primitives are usable on their own:
//
//   - Spawn and SpawnNamed start joinable workers that isolate panics.
//   - Local is a value private to each goroutine, dropped when a spawned
//     worker terminates.
//   - Lazy runs an initializer exactly once no matter how many goroutines
//     race to trigger it.
//   - Barrier releases a group of goroutines together.
//   - Counter is a cache-line sharded counter.
//   - Tracker hands out generation-stamped Tokens so a reader can retire a
//     generation and wait for its writers before reading a snapshot.
//   - Runtime executes tasks on a fixed number of workers, where a task hands
//     its worker back while it sleeps or awaits another task.
package racebench
