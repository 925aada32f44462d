package invite

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/rulebookhq/rulebook/internal/platform/errors"
)

func intPtr(v int) *int { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateInvite(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv, err := CreateInvite(CreateInviteInput{
		OrganizationID: "org-1",
		CreatedBy:      "user-admin",
		ExpiresInDays:  7,
		MaxUses:        intPtr(2),
		Role:           RoleMember,
	}, fixedClock(created), nil, nil)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	if inv.ID == "" {
		t.Fatal("expected generated invite id")
	}
	if inv.Token == "" {
		t.Fatal("expected generated invite token")
	}
	if inv.ID == inv.Token {
		t.Fatal("expected id and token to be distinct")
	}
	if inv.CurrentUses != 0 {
		t.Fatalf("current uses = %d, want 0", inv.CurrentUses)
	}
	if !inv.IsActive {
		t.Fatal("expected new invite to be active")
	}
	wantExpiry := created.AddDate(0, 0, 7)
	if !inv.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expires at = %v, want %v", inv.ExpiresAt, wantExpiry)
	}
	if inv.MaxUses == nil || *inv.MaxUses != 2 {
		t.Fatalf("max uses = %v, want 2", inv.MaxUses)
	}
}

func TestCreateInviteValidation(t *testing.T) {
	valid := CreateInviteInput{
		OrganizationID: "org-1",
		CreatedBy:      "user-admin",
		ExpiresInDays:  7,
		Role:           RoleMember,
	}

	cases := []struct {
		name    string
		mutate  func(in CreateInviteInput) CreateInviteInput
		wantErr error
	}{
		{
			name:    "missing organization",
			mutate:  func(in CreateInviteInput) CreateInviteInput { in.OrganizationID = "  "; return in },
			wantErr: ErrEmptyOrganizationID,
		},
		{
			name:    "missing creator",
			mutate:  func(in CreateInviteInput) CreateInviteInput { in.CreatedBy = ""; return in },
			wantErr: ErrEmptyCreatedBy,
		},
		{
			name:    "zero expiry",
			mutate:  func(in CreateInviteInput) CreateInviteInput { in.ExpiresInDays = 0; return in },
			wantErr: ErrExpiryOutOfRange,
		},
		{
			name:    "expiry beyond a year",
			mutate:  func(in CreateInviteInput) CreateInviteInput { in.ExpiresInDays = 366; return in },
			wantErr: ErrExpiryOutOfRange,
		},
		{
			name:    "zero max uses",
			mutate:  func(in CreateInviteInput) CreateInviteInput { in.MaxUses = intPtr(0); return in },
			wantErr: ErrInvalidMaxUses,
		},
		{
			name:    "unspecified role",
			mutate:  func(in CreateInviteInput) CreateInviteInput { in.Role = RoleUnspecified; return in },
			wantErr: ErrInvalidRole,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateInvite(tc.mutate(valid), nil, nil, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if apperrors.CodeOf(err) != apperrors.CodeValidationError {
				t.Fatalf("code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeValidationError)
			}
		})
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	base := Invite{
		ID:             "inv-1",
		OrganizationID: "org-1",
		ExpiresAt:      now.Add(24 * time.Hour),
		IsActive:       true,
		Role:           RoleMember,
	}

	// Revocation wins over everything else.
	revoked := base
	revoked.IsActive = false
	revoked.ExpiresAt = now.Add(-time.Hour)
	revoked.MaxUses = intPtr(1)
	revoked.CurrentUses = 1
	if got := Evaluate(revoked, now); got != StateRevoked {
		t.Fatalf("state = %v, want revoked", StateLabel(got))
	}

	// Expiry is reported before exhaustion.
	expired := base
	expired.ExpiresAt = now.Add(-time.Minute)
	expired.MaxUses = intPtr(1)
	expired.CurrentUses = 1
	if got := Evaluate(expired, now); got != StateExpired {
		t.Fatalf("state = %v, want expired", StateLabel(got))
	}

	exhausted := base
	exhausted.MaxUses = intPtr(3)
	exhausted.CurrentUses = 3
	if got := Evaluate(exhausted, now); got != StateExhausted {
		t.Fatalf("state = %v, want exhausted", StateLabel(got))
	}

	if got := Evaluate(base, now); got != StateActive {
		t.Fatalf("state = %v, want active", StateLabel(got))
	}
}

func TestEvaluateUnlimitedUses(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inv := Invite{
		IsActive:    true,
		ExpiresAt:   now.Add(time.Hour),
		MaxUses:     nil,
		CurrentUses: 100000,
	}
	if got := Evaluate(inv, now); got != StateActive {
		t.Fatalf("state = %v, want active for unlimited invite", StateLabel(got))
	}
}

func TestRoleLabelRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleMember, RoleAdmin} {
		if got := RoleFromLabel(RoleLabel(role)); got != role {
			t.Fatalf("round trip for %v = %v", role, got)
		}
	}
	if got := RoleFromLabel(" ADMIN "); got != RoleAdmin {
		t.Fatalf("role from label = %v, want admin", got)
	}
	if got := RoleFromLabel("owner"); got != RoleUnspecified {
		t.Fatalf("role from label = %v, want unspecified", got)
	}
}

func TestRedemptionURL(t *testing.T) {
	got := RedemptionURL("https://rulebook.dev/", "tok123")
	if got != "https://rulebook.dev/invites/tok123" {
		t.Fatalf("url = %q", got)
	}
}
