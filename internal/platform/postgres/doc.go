// Package postgres implements the task and variation stores on PostgreSQL.
// Status transitions are compiled into conditional UPDATEs keyed on the
// expected prior status, so concurrency control needs no explicit locks.
package postgres
