// Package store holds the community adjustment state in process memory.
// It provides a thread-safe adjustment accumulator keyed by route key and a
// per-route-variant rating log. Nothing is persisted across restarts.
package store
