package ports

import (
	"context"

	"github.com/labook/users-api/internal/core/domain"
)

// AuditRepository persists account lifecycle events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuditEvent) error
}

// AuditRecorder accepts audit events for asynchronous persistence.
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}
