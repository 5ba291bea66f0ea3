// Package runner implements the interval cache runner that owns a
// provider's published snapshot.
//
// A Runner invokes a FetchFunc once per cycle, canonicalizes the result
// through the model package (normalize, then last-wins dedupe), and swaps the
// published Snapshot with a single atomic pointer store. Readers call Cached
// and Status without taking a lock and never observe a partially built
// snapshot.
//
// LIFECYCLE:
//
//	Idle --Start--> Running --Stop--> Stopped (terminal)
//
// While Running the background loop alternates between waiting for the
// interval timer and fetching. Only one cycle is ever in flight: the interval
// loop and RunNow share one in-flight guard, and a trigger that finds the
// guard taken is dropped (BUSY), never queued.
//
// A failing cycle never stops the loop. The previous snapshot stays
// published, the error is recorded in Status.LastError, and the next cycle
// runs on schedule. Panics inside the FetchFunc are recovered into a
// FetchError.
//
// Stop is cooperative. It never interrupts a running FetchFunc; it waits up
// to the given timeout for the loop and any in-flight cycle to finish.
package runner
