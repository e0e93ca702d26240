package domain

import "time"

// AuditKind names an account lifecycle event.
type AuditKind string

const (
	AuditSignup AuditKind = "signup"
	AuditLogin  AuditKind = "login"
	AuditDelete AuditKind = "delete"
)

// AuditEvent records who did what to which account.
type AuditEvent struct {
	UserID    string
	Kind      AuditKind
	ActorID   string
	ActorRole Role
	At        time.Time
}
