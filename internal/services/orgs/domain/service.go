// Package domain implements the organization invite lifecycle and
// redemption engine.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/platform/id"
	"github.com/rulebookhq/rulebook/internal/platform/token"
	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
	"github.com/rulebookhq/rulebook/internal/services/orgs/observability/audit"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

const tracerName = "rulebookhq/rulebook/orgs"

// Config wires the invite service's collaborators.
type Config struct {
	Invites       storage.InviteStore
	Memberships   storage.MembershipStore
	Redemptions   storage.RedemptionStore
	Organizations storage.OrganizationStore
	Audit         *audit.Emitter
	Grants        *JoinGrantSigner
	// PublicOrigin is the base URL used to derive redemption URLs.
	PublicOrigin string
	Clock        func() time.Time
	NewID        func() (string, error)
	NewToken     func() (string, error)
}

// Service orchestrates invite creation, validation, revocation, redemption,
// and administrative reporting.
type Service struct {
	invites       storage.InviteStore
	memberships   storage.MembershipStore
	redemptions   storage.RedemptionStore
	organizations storage.OrganizationStore
	audit         *audit.Emitter
	grants        *JoinGrantSigner
	origin        string
	clock         func() time.Time
	newID         func() (string, error)
	newToken      func() (string, error)
	tracer        trace.Tracer
}

// NewService constructs the invite engine.
func NewService(cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}
	newToken := cfg.NewToken
	if newToken == nil {
		newToken = token.New
	}
	return &Service{
		invites:       cfg.Invites,
		memberships:   cfg.Memberships,
		redemptions:   cfg.Redemptions,
		organizations: cfg.Organizations,
		audit:         cfg.Audit,
		grants:        cfg.Grants,
		origin:        strings.TrimRight(strings.TrimSpace(cfg.PublicOrigin), "/"),
		clock:         clock,
		newID:         newID,
		newToken:      newToken,
		tracer:        otel.Tracer(tracerName),
	}
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// CreateInvite validates input metadata, generates an identifier and token,
// and durably inserts the invite. The returned record includes the token;
// creation is the only time it is handed back in full.
func (s *Service) CreateInvite(ctx context.Context, input invite.CreateInviteInput) (invite.Invite, error) {
	inv, err := invite.CreateInvite(input, s.clock, s.newID, s.newToken)
	if err != nil {
		return invite.Invite{}, err
	}

	if err := s.invites.PutInvite(ctx, inv); err != nil {
		return invite.Invite{}, apperrors.Wrap(apperrors.CodeCreateFailed, "create invite", err)
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Operation:      audit.OperationInviteCreate,
		ActorID:        inv.CreatedBy,
		OrganizationID: inv.OrganizationID,
		TargetID:       inv.ID,
		Outcome:        audit.OutcomeSuccess,
	})
	return inv, nil
}

// InviteValidation is the redeemer-facing view of a valid invite. It carries
// the organization summary and invite metadata, never the issuing
// administrator or other invites' tokens.
type InviteValidation struct {
	Organization storage.Organization
	ExpiresAt    time.Time
	Role         invite.Role
	MaxUses      *int
	CurrentUses  int
}

// ValidateInvite checks an invite token without side effects. Callers need
// no identity; the reason codes are the only information disclosed.
func (s *Service) ValidateInvite(ctx context.Context, inviteToken string) (InviteValidation, error) {
	inv, err := s.lookupActiveInvite(ctx, inviteToken)
	if err != nil {
		return InviteValidation{}, err
	}

	org, err := s.organizations.GetOrganization(ctx, inv.OrganizationID)
	if err != nil {
		return InviteValidation{}, apperrors.Wrap(apperrors.CodeInternal, "load organization", err)
	}

	return InviteValidation{
		Organization: org,
		ExpiresAt:    inv.ExpiresAt,
		Role:         inv.Role,
		MaxUses:      inv.MaxUses,
		CurrentUses:  inv.CurrentUses,
	}, nil
}

// RevokeInvite deactivates an invite. Revoking an already-revoked invite
// succeeds; there is no un-revoke.
func (s *Service) RevokeInvite(ctx context.Context, inviteID, actorID string) error {
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return apperrors.New(apperrors.CodeValidationError, "invite id is required")
	}

	inv, err := s.invites.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "load invite", err)
	}

	if err := s.invites.RevokeInvite(ctx, inviteID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return apperrors.Wrap(apperrors.CodeRevokeFailed, "revoke invite", err)
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Operation:      audit.OperationInviteRevoke,
		ActorID:        actorID,
		OrganizationID: inv.OrganizationID,
		TargetID:       inviteID,
		Outcome:        audit.OutcomeSuccess,
	})
	return nil
}

// InviteListing is one admin-facing invite row annotated with its derived
// state and redemption URL.
type InviteListing struct {
	Invite        invite.Invite
	State         invite.State
	RedemptionURL string
}

// ListOrganizationInvites returns an organization's invites newest first.
// The optional filter expression narrows by role, activity, creator, or
// creation time.
func (s *Service) ListOrganizationInvites(ctx context.Context, organizationID, filter string) ([]InviteListing, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, apperrors.New(apperrors.CodeValidationError, "organization id is required")
	}

	invites, err := s.invites.ListInvitesByOrganization(ctx, organizationID, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidationError, "list invites", err)
	}

	now := s.nowUTC()
	listings := make([]InviteListing, 0, len(invites))
	for _, inv := range invites {
		listings = append(listings, InviteListing{
			Invite:        inv,
			State:         invite.Evaluate(inv, now),
			RedemptionURL: invite.RedemptionURL(s.origin, inv.Token),
		})
	}
	return listings, nil
}

// lookupActiveInvite resolves a token to a currently redeemable invite.
//
// The check order is load-bearing: malformed token, then missing row, then
// revocation, then expiry, then exhaustion, so the most specific dead-invite
// reason wins.
func (s *Service) lookupActiveInvite(ctx context.Context, inviteToken string) (invite.Invite, error) {
	inviteToken = strings.TrimSpace(inviteToken)
	if !token.Wellformed(inviteToken) {
		return invite.Invite{}, apperrors.New(apperrors.CodeInvalidToken, "invite token is malformed")
	}

	inv, err := s.invites.GetInviteByToken(ctx, inviteToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return invite.Invite{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return invite.Invite{}, apperrors.Wrap(apperrors.CodeInternal, "load invite", err)
	}

	if err := stateError(invite.Evaluate(inv, s.nowUTC())); err != nil {
		return invite.Invite{}, err
	}
	return inv, nil
}

// stateError maps a dead invite state to its reason code. It returns nil for
// an active invite.
func stateError(state invite.State) error {
	switch state {
	case invite.StateActive:
		return nil
	case invite.StateRevoked:
		return apperrors.New(apperrors.CodeInviteRevoked, "invite is revoked")
	case invite.StateExpired:
		return apperrors.New(apperrors.CodeInviteExpired, "invite is expired")
	case invite.StateExhausted:
		return apperrors.New(apperrors.CodeInviteMaxUses, "invite has no remaining uses")
	default:
		return apperrors.New(apperrors.CodeInternal, "invite state is unknown")
	}
}

func spanAttributes(inv invite.Invite) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("invite.id", inv.ID),
		attribute.String("organization.id", inv.OrganizationID),
	}
}
