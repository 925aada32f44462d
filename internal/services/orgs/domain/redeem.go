package domain

import (
	"context"
	"errors"
	"log"
	"strings"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
	"github.com/rulebookhq/rulebook/internal/services/orgs/observability/audit"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

// RedemptionResult is the outcome of a successful redemption. AlreadyMember
// reports that the caller held the membership before this call; in that case
// no counter moved and no record was written.
type RedemptionResult struct {
	AlreadyMember bool
	Organization  storage.Organization
	// JoinGrant is a short-lived signed proof of the granted membership.
	// Empty when no signer is configured.
	JoinGrant string
}

// RedeemInvite exchanges a valid invite token plus a user identity for an
// organization membership.
//
// The contended step runs first: one conditional increment on the usage
// counter decides whether this caller holds a slot. The membership and
// redemption record are only written after the slot is secured, so a lost
// race never leaves partial state behind.
func (s *Service) RedeemInvite(ctx context.Context, inviteToken, userID string, wasNewUser bool) (RedemptionResult, error) {
	ctx, span := s.tracer.Start(ctx, "orgs.redeem_invite")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return RedemptionResult{}, apperrors.New(apperrors.CodeUnauthorized, "user identity is required")
	}

	inv, err := s.lookupActiveInvite(ctx, inviteToken)
	if err != nil {
		return RedemptionResult{}, err
	}
	span.SetAttributes(spanAttributes(inv)...)

	// Repeat redemption by an existing member is a success, not an error.
	// It must not touch the counter or the redemption history.
	_, err = s.memberships.GetMembership(ctx, inv.OrganizationID, userID)
	if err == nil {
		org, orgErr := s.organizations.GetOrganization(ctx, inv.OrganizationID)
		if orgErr != nil {
			return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "load organization", orgErr)
		}
		s.audit.Emit(ctx, storage.AuditEvent{
			Operation:      audit.OperationInviteRedeem,
			ActorID:        userID,
			OrganizationID: inv.OrganizationID,
			TargetID:       inv.ID,
			Outcome:        audit.OutcomeAlreadyMember,
		})
		return RedemptionResult{AlreadyMember: true, Organization: org}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "check membership", err)
	}

	org, err := s.organizations.GetOrganization(ctx, inv.OrganizationID)
	if err != nil {
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "load organization", err)
	}

	consumed, err := s.invites.ConsumeInviteUse(ctx, inv.ID)
	if err != nil {
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "consume invite use", err)
	}
	if !consumed {
		return RedemptionResult{}, s.slotDeniedError(ctx, inv, userID)
	}

	membership := storage.Membership{
		OrganizationID: inv.OrganizationID,
		UserID:         userID,
		Role:           inv.Role,
		CreatedAt:      s.nowUTC(),
	}
	if err := s.memberships.PutMembership(ctx, membership); err != nil {
		if releaseErr := s.invites.ReleaseInviteUse(ctx, inv.ID); releaseErr != nil {
			log.Printf("release invite use %s: %v", inv.ID, releaseErr)
		}
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "insert membership", err)
	}

	recordID, err := s.newID()
	if err != nil {
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "generate redemption id", err)
	}
	record := storage.RedemptionRecord{
		ID:         recordID,
		InviteID:   inv.ID,
		UserID:     userID,
		WasNewUser: wasNewUser,
		RedeemedAt: s.nowUTC(),
	}
	if err := s.redemptions.AppendRedemption(ctx, record); err != nil {
		return RedemptionResult{}, apperrors.Wrap(apperrors.CodeInternal, "append redemption record", err)
	}

	result := RedemptionResult{Organization: org}
	if grant, err := s.grants.Mint(inv.OrganizationID, inv.ID, userID, inv.Role); err != nil {
		log.Printf("mint join grant for %s: %v", inv.ID, err)
	} else {
		result.JoinGrant = grant
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Operation:      audit.OperationInviteRedeem,
		ActorID:        userID,
		OrganizationID: inv.OrganizationID,
		TargetID:       inv.ID,
		Outcome:        audit.OutcomeSuccess,
	})
	return result, nil
}

// slotDeniedError explains a lost usage-slot race. The invite is re-read so
// a concurrent revocation or expiry reports its own reason; a plain
// exhaustion race reports the same code the upfront check would have.
func (s *Service) slotDeniedError(ctx context.Context, inv invite.Invite, userID string) error {
	var reason error = apperrors.New(apperrors.CodeInviteMaxUses, "invite has no remaining uses")
	if current, err := s.invites.GetInvite(ctx, inv.ID); err == nil {
		if stateErr := stateError(invite.Evaluate(current, s.nowUTC())); stateErr != nil {
			reason = stateErr
		}
	}

	s.audit.Emit(ctx, storage.AuditEvent{
		Operation:      audit.OperationInviteRedeem,
		ActorID:        userID,
		OrganizationID: inv.OrganizationID,
		TargetID:       inv.ID,
		Outcome:        audit.OutcomeRejected,
		Reason:         string(apperrors.CodeOf(reason)),
	})
	return reason
}
