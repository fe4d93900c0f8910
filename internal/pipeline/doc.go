// Package pipeline runs media requests end to end: probe, fetch, size
// enforcement and delivery for single items, and sequential fan-out for
// collections.
package pipeline
