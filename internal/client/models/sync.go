package models

import (
	"encoding/json"
	"time"
)

type EntityType string

const (
	EntityPackage       EntityType = "package"
	EntityDocument      EntityType = "document"
	EntityChecklistItem EntityType = "checklist_item"
	EntityCounty        EntityType = "county"
)

type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// QueueState separates live entries from dead letters.
type QueueState string

const (
	QueuePending QueueState = "pending"
	QueueDead    QueueState = "dead"
)

// SyncQueueEntry is one local mutation awaiting remote application.
type SyncQueueEntry struct {
	ID             int64
	EntityType     EntityType
	EntityID       int64
	ParentID       *int64
	Operation      Operation
	Payload        json.RawMessage
	IdempotencyKey string
	CreatedAt      time.Time
	RetryCount     int
	LastAttemptAt  *time.Time
	LastError      string
	State          QueueState
}

// StatusPayload is the queued body of a package status UPDATE.
type StatusPayload struct {
	Status PackageStatus `json:"status"`
}

type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncSuccess SyncState = "success"
	SyncError   SyncState = "error"
)

// SyncStatus is the observable state of the sync engine. Success and Error
// persist until acknowledged or until the next cycle starts.
type SyncStatus struct {
	State   SyncState
	Message string
	At      time.Time
}

func (s SyncStatus) String() string {
	if s.Message == "" {
		return string(s.State)
	}
	return string(s.State) + ": " + s.Message
}

type SyncStats struct {
	PendingOperations int
	DeadLetters       int
	LastSyncTime      *time.Time
	IsOnline          bool
}
