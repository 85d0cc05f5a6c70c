// Package syncer copies documents from the document store into relational
// rows so they can be queried with SQL.
//
// The relational side is a read replica. Nothing coordinates a sync pass
// with concurrent portal writes, so a row may lag its document until the
// next pass picks it up. Re-syncing an unchanged document rewrites the same
// row, which makes every pass safe to repeat.
//
// Note the naming drift between the stores: the document collection
// "tasks" lands in the "jobs" table, "moments" land in "tasks", and
// "sessions" land in "shifts". A document's taskId field is always the
// job_id column.
package syncer
