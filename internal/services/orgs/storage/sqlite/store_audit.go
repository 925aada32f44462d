package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

// AppendAuditEvent records one administrative action outcome.
func (s *Store) AppendAuditEvent(ctx context.Context, event storage.AuditEvent) error {
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("audit event id is required")
	}
	if strings.TrimSpace(event.Operation) == "" {
		return fmt.Errorf("audit operation is required")
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = nowUTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO audit_events (id, operation, actor_id, organization_id, target_id, outcome, reason, ts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		event.ID,
		event.Operation,
		event.ActorID,
		event.OrganizationID,
		event.TargetID,
		event.Outcome,
		event.Reason,
		toMillis(timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
