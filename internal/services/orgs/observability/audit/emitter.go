// Package audit records administrative action outcomes for the orgs service.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/rulebookhq/rulebook/internal/platform/id"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

// Operation names recorded in the audit trail.
const (
	OperationInviteCreate = "invite.create"
	OperationInviteRevoke = "invite.revoke"
	OperationInviteRedeem = "invite.redeem"
)

// Outcome labels recorded in the audit trail.
const (
	OutcomeSuccess       = "success"
	OutcomeAlreadyMember = "already_member"
	OutcomeRejected      = "rejected"
)

// Emitter records administrative audit events.
//
// Audit writes never fail the operation they describe: storage errors are
// logged and swallowed so a broken audit table cannot block redemptions.
type Emitter struct {
	store storage.AuditEventStore
	clock func() time.Time
	newID func() (string, error)
}

// NewEmitter creates a new audit event emitter.
func NewEmitter(store storage.AuditEventStore) *Emitter {
	return &Emitter{store: store, clock: time.Now, newID: id.NewID}
}

// Emit records an audit event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, evt storage.AuditEvent) {
	if e == nil || e.store == nil {
		return
	}
	if evt.ID == "" {
		newID := e.newID
		if newID == nil {
			newID = id.NewID
		}
		eventID, err := newID()
		if err != nil {
			log.Printf("audit event id: %v", err)
			return
		}
		evt.ID = eventID
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	if err := e.store.AppendAuditEvent(ctx, evt); err != nil {
		log.Printf("append audit event %s: %v", evt.Operation, err)
	}
}
