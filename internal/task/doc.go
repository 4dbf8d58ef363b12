// Package task implements the background orchestration and resilience engine:
// the task state machine, the bounded fan-out orchestrator, the per-unit
// execution harness, and the stale-task sweeper. One client request fans out
// into N independently-processable work units whose failures and timeouts are
// isolated from the batch; tasks abandoned mid-flight are reconciled by a
// periodic sweep over persisted liveness timestamps. All status transitions
// go through conditional updates keyed on the expected prior status, which
// makes redelivered triggers and concurrent sweeps safe without locks.
package task
