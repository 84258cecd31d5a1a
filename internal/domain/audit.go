package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is one entry of the trail kept for loans, catalog edits, user
// removal and availability repairs.
type AuditLog struct {
	ID           string
	UserID       string // actor
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a decoded JSON object.
type JSON map[string]any

type AuditAction string

const (
	AuditActionLoanBorrow AuditAction = "loan.borrow"
	AuditActionLoanReturn AuditAction = "loan.return"

	AuditActionBookCreate AuditAction = "book.create"
	AuditActionBookUpdate AuditAction = "book.update"
	AuditActionBookDelete AuditAction = "book.delete"

	AuditActionUserDelete AuditAction = "user.delete"

	AuditActionAvailabilityRepair AuditAction = "book.availability_repair"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// NewAuditLog records a successful action taken by actor. An anonymous actor
// is recorded as the system principal.
func NewAuditLog(id string, actor Principal, action AuditAction, resourceType, resourceID string, at time.Time) *AuditLog {
	userID := actor.UserID
	if userID == "" {
		userID = SystemPrincipal.UserID
	}
	return &AuditLog{
		ID:           id,
		UserID:       userID,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       string(AuditStatusSuccess),
		CreatedAt:    at.UTC(),
	}
}

// WithStates snapshots the resource around the action. A nil side is left
// empty.
func (a *AuditLog) WithStates(before, after any) *AuditLog {
	a.BeforeState = MarshalState(before)
	a.AfterState = MarshalState(after)
	return a
}

// WithRequestID ties the entry to the HTTP request that caused it.
func (a *AuditLog) WithRequestID(id string) *AuditLog {
	a.RequestID = id
	return a
}

// MarshalState flattens v into a JSON object. Typed nil pointers yield nil.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}
	if j, ok := v.(JSON); ok {
		return j
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": err.Error()}
	}

	var out JSON
	if err := json.Unmarshal(data, &out); err != nil {
		// Not an object, e.g. a bare scalar.
		return JSON{"value": json.RawMessage(data)}
	}
	return out
}

// AuditFilter narrows an audit trail query. Zero values match everything.
type AuditFilter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
