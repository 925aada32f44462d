package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
	"github.com/rulebookhq/rulebook/internal/services/orgs/storage"
)

// PutOrganization upserts an organization summary row.
func (s *Store) PutOrganization(ctx context.Context, org storage.Organization) error {
	if strings.TrimSpace(org.ID) == "" {
		return fmt.Errorf("organization id is required")
	}
	if strings.TrimSpace(org.Slug) == "" {
		return fmt.Errorf("organization slug is required")
	}
	createdAt := org.CreatedAt
	if createdAt.IsZero() {
		createdAt = nowUTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO organizations (id, slug, name, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET slug = excluded.slug, name = excluded.name
`, org.ID, org.Slug, org.Name, toMillis(createdAt))
	if err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}
	return nil
}

// GetOrganization returns one organization summary by id.
func (s *Store) GetOrganization(ctx context.Context, organizationID string) (storage.Organization, error) {
	var org storage.Organization
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, slug, name, created_at FROM organizations WHERE id = ?
`, organizationID).Scan(&org.ID, &org.Slug, &org.Name, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Organization{}, storage.ErrNotFound
		}
		return storage.Organization{}, fmt.Errorf("get organization: %w", err)
	}
	org.CreatedAt = fromMillis(createdAt)
	return org, nil
}

// GetMembership returns one membership by its composite identity.
func (s *Store) GetMembership(ctx context.Context, organizationID, userID string) (storage.Membership, error) {
	var membership storage.Membership
	var role string
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT organization_id, user_id, role, created_at
FROM memberships
WHERE organization_id = ? AND user_id = ?
`, organizationID, userID).Scan(&membership.OrganizationID, &membership.UserID, &role, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Membership{}, storage.ErrNotFound
		}
		return storage.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	membership.Role = invite.RoleFromLabel(role)
	membership.CreatedAt = fromMillis(createdAt)
	return membership, nil
}

// PutMembership inserts a membership if absent. An existing row wins: the
// engine never changes the role of an established member.
func (s *Store) PutMembership(ctx context.Context, membership storage.Membership) error {
	if strings.TrimSpace(membership.OrganizationID) == "" {
		return fmt.Errorf("organization id is required")
	}
	if strings.TrimSpace(membership.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	createdAt := membership.CreatedAt
	if createdAt.IsZero() {
		createdAt = nowUTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO memberships (organization_id, user_id, role, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(organization_id, user_id) DO NOTHING
`, membership.OrganizationID, membership.UserID, invite.RoleLabel(membership.Role), toMillis(createdAt))
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
