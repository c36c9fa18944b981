// Package models defines domain entities and persistence interfaces for the moodify recommendation service.
//
// The package contains two categories of types:
//
// 1. Per-request values: lightweight structs with no cross-request sharing
//   - [Principal] : the authenticated listener derived from the catalog profile
//   - [SearchDirective] : structured output of the query synthesizer
//   - [Track] : read-only catalog track returned to clients
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [Profile] : listener taste profile (genres, artists, liked tracks)
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
