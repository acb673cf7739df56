package storage

// Package storage persists the per-target watch markers between runs.
//
// It currently supports:
//   - A dependency-free file backend (snapshot + journal)
//   - An optional SQLite backend (build tag "sqlite")
//   - An in-memory backend for tests and throwaway runs
