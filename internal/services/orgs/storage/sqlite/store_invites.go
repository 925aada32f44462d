package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rulebookhq/rulebook/internal/services/orgs/filter"
	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

const inviteColumns = `id, organization_id, token, created_by, created_at, expires_at, max_uses, current_uses, is_active, role`

// PutInvite inserts a new invite row. The token column carries a uniqueness
// constraint so a generator collision surfaces as an insert error instead of
// silently aliasing two invites.
func (s *Store) PutInvite(ctx context.Context, inv invite.Invite) error {
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invite id is required")
	}
	if strings.TrimSpace(inv.Token) == "" {
		return fmt.Errorf("invite token is required")
	}

	var maxUses sql.NullInt64
	if inv.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*inv.MaxUses), Valid: true}
	}
	isActive := 0
	if inv.IsActive {
		isActive = 1
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO invites (
	id,
	organization_id,
	token,
	created_by,
	created_at,
	expires_at,
	max_uses,
	current_uses,
	is_active,
	role
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		inv.ID,
		inv.OrganizationID,
		inv.Token,
		inv.CreatedBy,
		toMillis(inv.CreatedAt),
		toMillis(inv.ExpiresAt),
		maxUses,
		inv.CurrentUses,
		isActive,
		invite.RoleLabel(inv.Role),
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// GetInvite returns one invite by id.
func (s *Store) GetInvite(ctx context.Context, inviteID string) (invite.Invite, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ?`, inviteID)
	return scanInvite(row)
}

// GetInviteByToken returns one invite by its redemption token.
func (s *Store) GetInviteByToken(ctx context.Context, token string) (invite.Invite, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE token = ?`, token)
	return scanInvite(row)
}

// RevokeInvite deactivates an invite. Revocation is idempotent and
// irreversible; revoking an already-revoked invite succeeds without error.
func (s *Store) RevokeInvite(ctx context.Context, inviteID string) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites
SET is_active = 0,
    revoked_at = COALESCE(revoked_at, ?)
WHERE id = ?
`, toMillis(nowUTC()), inviteID)
	if err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke invite rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ConsumeInviteUse atomically secures one usage slot on an invite.
//
// The guarded UPDATE is the serialization point for concurrent redemptions:
// it only increments while the invite is active and headroom remains, so
// current_uses can never exceed max_uses no matter how many callers race.
// It returns false when no slot was available at write time.
func (s *Store) ConsumeInviteUse(ctx context.Context, inviteID string) (bool, error) {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites
SET current_uses = current_uses + 1
WHERE id = ?
  AND is_active = 1
  AND (max_uses IS NULL OR current_uses < max_uses)
`, inviteID)
	if err != nil {
		return false, fmt.Errorf("consume invite use: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume invite use rows affected: %w", err)
	}
	return affected == 1, nil
}

// ReleaseInviteUse returns a previously consumed usage slot. It compensates
// a failed membership insert after the slot was already secured.
func (s *Store) ReleaseInviteUse(ctx context.Context, inviteID string) error {
	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites
SET current_uses = current_uses - 1
WHERE id = ? AND current_uses > 0
`, inviteID)
	if err != nil {
		return fmt.Errorf("release invite use: %w", err)
	}
	return nil
}

// ListInvitesByOrganization returns all invites for an organization ordered
// by creation time descending. An optional AIP-160 filter expression narrows
// the listing.
func (s *Store) ListInvitesByOrganization(ctx context.Context, organizationID string, filterStr string) ([]invite.Invite, error) {
	condition, err := filter.ParseInviteFilter(filterStr)
	if err != nil {
		return nil, fmt.Errorf("parse invite filter: %w", err)
	}

	query := `SELECT ` + inviteColumns + ` FROM invites WHERE organization_id = ?`
	params := []any{organizationID}
	if condition.Clause != "" {
		query += ` AND ` + condition.Clause
		params = append(params, condition.Params...)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var invites []invite.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invites: %w", err)
	}
	return invites, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (invite.Invite, error) {
	var inv invite.Invite
	var createdAt, expiresAt int64
	var maxUses sql.NullInt64
	var isActive int
	var role string
	err := row.Scan(
		&inv.ID,
		&inv.OrganizationID,
		&inv.Token,
		&inv.CreatedBy,
		&createdAt,
		&expiresAt,
		&maxUses,
		&inv.CurrentUses,
		&isActive,
		&role,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return invite.Invite{}, storage.ErrNotFound
		}
		return invite.Invite{}, fmt.Errorf("scan invite: %w", err)
	}

	inv.CreatedAt = fromMillis(createdAt)
	inv.ExpiresAt = fromMillis(expiresAt)
	if maxUses.Valid {
		value := int(maxUses.Int64)
		inv.MaxUses = &value
	}
	inv.IsActive = isActive == 1
	inv.Role = invite.RoleFromLabel(role)
	return inv, nil
}
