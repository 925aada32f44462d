package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

// AppendRedemption records one successful redemption. Records are immutable;
// there is no update or delete path.
func (s *Store) AppendRedemption(ctx context.Context, record storage.RedemptionRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("redemption id is required")
	}
	if strings.TrimSpace(record.InviteID) == "" {
		return fmt.Errorf("invite id is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	redeemedAt := record.RedeemedAt
	if redeemedAt.IsZero() {
		redeemedAt = nowUTC()
	}
	wasNewUser := 0
	if record.WasNewUser {
		wasNewUser = 1
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO redemptions (id, invite_id, user_id, was_new_user, redeemed_at)
VALUES (?, ?, ?, ?, ?)
`, record.ID, record.InviteID, record.UserID, wasNewUser, toMillis(redeemedAt))
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

// ListRedemptionsByInvite returns all redemption records for an invite in
// redemption order.
func (s *Store) ListRedemptionsByInvite(ctx context.Context, inviteID string) ([]storage.RedemptionRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, invite_id, user_id, was_new_user, redeemed_at
FROM redemptions
WHERE invite_id = ?
ORDER BY redeemed_at, id
`, inviteID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []storage.RedemptionRecord
	for rows.Next() {
		var record storage.RedemptionRecord
		var wasNewUser int
		var redeemedAt int64
		if err := rows.Scan(&record.ID, &record.InviteID, &record.UserID, &wasNewUser, &redeemedAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		record.WasNewUser = wasNewUser == 1
		record.RedeemedAt = fromMillis(redeemedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemptions: %w", err)
	}
	return records, nil
}
