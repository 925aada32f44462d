package domain

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

// InviteStats summarizes an invite's redemption history.
type InviteStats struct {
	TotalRedemptions int
	NewUsers         int
	ExistingUsers    int
}

// GetInviteStats partitions an invite's redemption records on whether the
// redeemer's account was created during the redemption flow. An invite with
// no redemptions yields all-zero stats; an unknown invite id is an error.
func (s *Service) GetInviteStats(ctx context.Context, inviteID string) (InviteStats, error) {
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return InviteStats{}, apperrors.New(apperrors.CodeValidationError, "invite id is required")
	}

	if _, err := s.invites.GetInvite(ctx, inviteID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return InviteStats{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return InviteStats{}, apperrors.Wrap(apperrors.CodeInternal, "load invite", err)
	}

	records, err := s.redemptions.ListRedemptionsByInvite(ctx, inviteID)
	if err != nil {
		return InviteStats{}, apperrors.Wrap(apperrors.CodeInternal, "list redemptions", err)
	}

	stats := InviteStats{TotalRedemptions: len(records)}
	for _, record := range records {
		if record.WasNewUser {
			stats.NewUsers++
		} else {
			stats.ExistingUsers++
		}
	}
	return stats, nil
}
