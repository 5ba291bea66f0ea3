// Package store is the SQLite journal of provider activity.
//
// The journal records one row per fetch cycle and one row per lazy-load
// request. It never stores snapshot objects: a restarted provider always
// begins with an empty snapshot and fetches again.
//
// Rows carry the run id of the process that wrote them, since cycle
// numbers restart at zero with every run. All reads order by the
// insertion sequence, newest first.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single open connection, SQLite allowing one writer
package store
