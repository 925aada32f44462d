// Package storage defines persistence contracts for the orgs service.
package storage

import (
	"context"
	"time"

	"github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// Organization is the membership target referenced by invites. Organization
// rows are owned by the hosting application; this service reads them and
// exposes an upsert for seeding.
type Organization struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
}

// Membership ties a user to an organization at a fixed role. The orgs
// service only ever inserts memberships; it never mutates or deletes them.
type Membership struct {
	OrganizationID string
	UserID         string
	Role           invite.Role
	CreatedAt      time.Time
}

// RedemptionRecord captures one successful invite redemption. Records are
// immutable once written and append-only per invite.
type RedemptionRecord struct {
	ID         string
	InviteID   string
	UserID     string
	WasNewUser bool
	RedeemedAt time.Time
}

// AuditEvent records one administrative action outcome.
type AuditEvent struct {
	ID             string
	Operation      string
	ActorID        string
	OrganizationID string
	TargetID       string
	Outcome        string
	Reason         string
	Timestamp      time.Time
}

// InviteStore persists invite records.
//
// ConsumeInviteUse is the single contended operation of the whole service:
// it must increment current_uses atomically, guarded by the is_active flag
// and remaining usage headroom, and report whether a slot was secured.
type InviteStore interface {
	PutInvite(ctx context.Context, inv invite.Invite) error
	GetInvite(ctx context.Context, inviteID string) (invite.Invite, error)
	GetInviteByToken(ctx context.Context, token string) (invite.Invite, error)
	RevokeInvite(ctx context.Context, inviteID string) error
	ConsumeInviteUse(ctx context.Context, inviteID string) (bool, error)
	ReleaseInviteUse(ctx context.Context, inviteID string) error
	ListInvitesByOrganization(ctx context.Context, organizationID string, filter string) ([]invite.Invite, error)
}

// MembershipStore persists organization memberships.
// PutMembership has insert-if-absent semantics.
type MembershipStore interface {
	GetMembership(ctx context.Context, organizationID, userID string) (Membership, error)
	PutMembership(ctx context.Context, membership Membership) error
}

// RedemptionStore persists invite redemption records.
type RedemptionStore interface {
	AppendRedemption(ctx context.Context, record RedemptionRecord) error
	ListRedemptionsByInvite(ctx context.Context, inviteID string) ([]RedemptionRecord, error)
}

// OrganizationStore persists organization summaries.
type OrganizationStore interface {
	PutOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, organizationID string) (Organization, error)
}

// AuditEventStore appends administrative audit events.
type AuditEventStore interface {
	AppendAuditEvent(ctx context.Context, event AuditEvent) error
}
