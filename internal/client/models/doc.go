// Package models defines the client-side domain types of the permit tracker:
// cached reference data (counties, checklist items), the user's permit
// packages and documents, and the durable sync queue.
//
// Identifiers are int64. Ids assigned by the server are positive. Records
// created while offline receive a negative provisional id that is replaced by
// the server id once the queued CREATE has been replayed.
package models
