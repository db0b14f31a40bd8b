/*
Package observability provides tools for monitoring the splitbill engine.

It includes Prometheus collectors fed by lifecycle hooks, structured logging hooks for
auditing transitions, and helpers to combine several hook sets.
*/
package observability
