// Package invite provides the organization invite domain model.
package invite

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
	"github.com/rulebookhq/rulebook/internal/platform/id"
	"github.com/rulebookhq/rulebook/internal/platform/token"
)

const (
	// MinExpiresInDays is the shortest allowed invite lifetime.
	MinExpiresInDays = 1
	// MaxExpiresInDays is the longest allowed invite lifetime.
	MaxExpiresInDays = 365
)

var (
	// ErrEmptyOrganizationID indicates a missing organization ID.
	ErrEmptyOrganizationID = apperrors.New(apperrors.CodeValidationError, "organization id is required")
	// ErrEmptyCreatedBy indicates a missing issuing administrator ID.
	ErrEmptyCreatedBy = apperrors.New(apperrors.CodeValidationError, "created by is required")
	// ErrExpiryOutOfRange indicates an expiresInDays value outside [1, 365].
	ErrExpiryOutOfRange = apperrors.New(apperrors.CodeValidationError, "expires in days must be between 1 and 365")
	// ErrInvalidMaxUses indicates a non-positive maximum use count.
	ErrInvalidMaxUses = apperrors.New(apperrors.CodeValidationError, "max uses must be at least 1")
	// ErrInvalidRole indicates a role outside the granted set.
	ErrInvalidRole = apperrors.New(apperrors.CodeValidationError, "role must be member or admin")
)

// Role is the membership role granted when an invite is redeemed.
type Role int

const (
	// RoleUnspecified represents an invalid role.
	RoleUnspecified Role = iota
	// RoleMember grants regular organization membership.
	RoleMember
	// RoleAdmin grants administrative organization membership.
	RoleAdmin
)

// RoleLabel returns the string label for a role.
func RoleLabel(role Role) string {
	switch role {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return "unspecified"
	}
}

// RoleFromLabel converts a role label to a Role value.
func RoleFromLabel(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "member":
		return RoleMember
	case "admin":
		return RoleAdmin
	default:
		return RoleUnspecified
	}
}

// State is the derived lifecycle state of an invite.
//
// State is computed, never stored: an invite row only carries is_active plus
// its usage counters, and expiry/exhaustion fall out of comparison against
// the clock and the counters.
type State int

const (
	// StateUnspecified represents an unknown invite state.
	StateUnspecified State = iota
	// StateActive indicates the invite can still be redeemed.
	StateActive
	// StateRevoked indicates the invite was explicitly deactivated.
	StateRevoked
	// StateExpired indicates the invite lifetime has passed.
	StateExpired
	// StateExhausted indicates all usage headroom has been consumed.
	StateExhausted
)

// StateLabel returns the string label for an invite state.
func StateLabel(state State) string {
	switch state {
	case StateActive:
		return "active"
	case StateRevoked:
		return "revoked"
	case StateExpired:
		return "expired"
	case StateExhausted:
		return "exhausted"
	default:
		return "unspecified"
	}
}

// Invite is a time- and usage-bounded capability granting organization
// membership at a fixed role.
type Invite struct {
	ID             string
	OrganizationID string
	Token          string
	CreatedBy      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	MaxUses        *int // nil means unlimited
	CurrentUses    int
	IsActive       bool
	Role           Role
}

// CreateInviteInput describes the metadata needed to create an invite.
type CreateInviteInput struct {
	OrganizationID string
	CreatedBy      string
	ExpiresInDays  int
	MaxUses        *int
	Role           Role
}

// NormalizeCreateInviteInput trims and validates invite input metadata.
// Validation runs before any identifier or token is generated so invalid
// requests never reach storage.
func NormalizeCreateInviteInput(input CreateInviteInput) (CreateInviteInput, error) {
	input.OrganizationID = strings.TrimSpace(input.OrganizationID)
	if input.OrganizationID == "" {
		return CreateInviteInput{}, ErrEmptyOrganizationID
	}
	input.CreatedBy = strings.TrimSpace(input.CreatedBy)
	if input.CreatedBy == "" {
		return CreateInviteInput{}, ErrEmptyCreatedBy
	}
	if input.ExpiresInDays < MinExpiresInDays || input.ExpiresInDays > MaxExpiresInDays {
		return CreateInviteInput{}, ErrExpiryOutOfRange
	}
	if input.MaxUses != nil && *input.MaxUses < 1 {
		return CreateInviteInput{}, ErrInvalidMaxUses
	}
	if input.Role != RoleMember && input.Role != RoleAdmin {
		return CreateInviteInput{}, ErrInvalidRole
	}
	return input, nil
}

// CreateInvite creates a new invite with a generated ID, token, and timestamps.
func CreateInvite(input CreateInviteInput, now func() time.Time, idGenerator func() (string, error), tokenGenerator func() (string, error)) (Invite, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if tokenGenerator == nil {
		tokenGenerator = token.New
	}

	normalized, err := NormalizeCreateInviteInput(input)
	if err != nil {
		return Invite{}, err
	}

	inviteID, err := idGenerator()
	if err != nil {
		return Invite{}, fmt.Errorf("generate invite id: %w", err)
	}
	inviteToken, err := tokenGenerator()
	if err != nil {
		return Invite{}, fmt.Errorf("generate invite token: %w", err)
	}

	createdAt := now().UTC()
	var maxUses *int
	if normalized.MaxUses != nil {
		value := *normalized.MaxUses
		maxUses = &value
	}
	return Invite{
		ID:             inviteID,
		OrganizationID: normalized.OrganizationID,
		Token:          inviteToken,
		CreatedBy:      normalized.CreatedBy,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.AddDate(0, 0, normalized.ExpiresInDays),
		MaxUses:        maxUses,
		CurrentUses:    0,
		IsActive:       true,
		Role:           normalized.Role,
	}, nil
}

// Evaluate derives the lifecycle state of an invite at a point in time.
//
// The check order is significant: revocation is reported before expiry, and
// expiry before exhaustion, so callers see the most specific reason an
// invite is dead.
func Evaluate(inv Invite, now time.Time) State {
	if !inv.IsActive {
		return StateRevoked
	}
	if now.After(inv.ExpiresAt) {
		return StateExpired
	}
	if inv.MaxUses != nil && inv.CurrentUses >= *inv.MaxUses {
		return StateExhausted
	}
	return StateActive
}

// RedemptionURL derives the human-usable redemption URL for an invite token.
func RedemptionURL(origin, inviteToken string) string {
	return strings.TrimRight(origin, "/") + "/invites/" + inviteToken
}
