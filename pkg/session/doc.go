/*
Package session implements per-actor session ownership.

A Manager serializes every operation on one actor's session behind a reference-counted
mutex (plus an optional distributed lock for multi-replica deployments), delegates
storage to a ports.SessionStore and evicts sessions that stay idle for too long.
*/
package session
