package domain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
)

func newTestKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	return public, private
}

func TestJoinGrantMintAndVerify(t *testing.T) {
	public, private := newTestKeyPair(t)
	signer := NewJoinGrantSigner("rulebook-orgs", "rulebook-sessions", private, 5*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer.clock = func() time.Time { return now }

	grant, err := signer.Mint("org-1", "invite-1", "user-1", invite.RoleAdmin)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if grant == "" {
		t.Fatal("Mint() returned empty grant")
	}

	claims, err := VerifyJoinGrant(grant, "rulebook-orgs", "rulebook-sessions", public, func() time.Time { return now })
	if err != nil {
		t.Fatalf("VerifyJoinGrant() error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}
	if claims.OrganizationID != "org-1" {
		t.Errorf("OrganizationID = %q, want org-1", claims.OrganizationID)
	}
	if claims.InviteID != "invite-1" {
		t.Errorf("InviteID = %q, want invite-1", claims.InviteID)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	if claims.JWTID == "" {
		t.Error("JWTID is empty")
	}
	if !claims.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, now.Add(5*time.Minute))
	}
}

func TestJoinGrantVerifyRejectsExpired(t *testing.T) {
	public, private := newTestKeyPair(t)
	signer := NewJoinGrantSigner("rulebook-orgs", "rulebook-sessions", private, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer.clock = func() time.Time { return now }

	grant, err := signer.Mint("org-1", "invite-1", "user-1", invite.RoleMember)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	later := func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := VerifyJoinGrant(grant, "rulebook-orgs", "rulebook-sessions", public, later); err == nil {
		t.Fatal("VerifyJoinGrant() on expired grant expected error")
	}
}

func TestJoinGrantVerifyRejectsWrongKey(t *testing.T) {
	_, private := newTestKeyPair(t)
	otherPublic, _ := newTestKeyPair(t)
	signer := NewJoinGrantSigner("rulebook-orgs", "rulebook-sessions", private, time.Minute)

	grant, err := signer.Mint("org-1", "invite-1", "user-1", invite.RoleMember)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if _, err := VerifyJoinGrant(grant, "rulebook-orgs", "rulebook-sessions", otherPublic, nil); err == nil {
		t.Fatal("VerifyJoinGrant() with wrong key expected error")
	}
}

func TestJoinGrantVerifyRejectsAudienceMismatch(t *testing.T) {
	public, private := newTestKeyPair(t)
	signer := NewJoinGrantSigner("rulebook-orgs", "rulebook-sessions", private, time.Minute)

	grant, err := signer.Mint("org-1", "invite-1", "user-1", invite.RoleMember)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if _, err := VerifyJoinGrant(grant, "rulebook-orgs", "other-audience", public, nil); err == nil {
		t.Fatal("VerifyJoinGrant() with audience mismatch expected error")
	}
}

func TestJoinGrantNilSignerMintsNothing(t *testing.T) {
	var signer *JoinGrantSigner
	grant, err := signer.Mint("org-1", "invite-1", "user-1", invite.RoleMember)
	if err != nil {
		t.Fatalf("Mint() on nil signer error = %v", err)
	}
	if grant != "" {
		t.Errorf("Mint() on nil signer = %q, want empty", grant)
	}
}

func TestLoadJoinGrantSignerFromEnv(t *testing.T) {
	_, private := newTestKeyPair(t)
	encoded := base64.StdEncoding.EncodeToString(private)

	t.Run("disabled when unset", func(t *testing.T) {
		t.Setenv("RULEBOOK_JOIN_GRANT_ISSUER", "")
		t.Setenv("RULEBOOK_JOIN_GRANT_AUDIENCE", "")
		t.Setenv("RULEBOOK_JOIN_GRANT_PRIVATE_KEY", "")
		signer, err := LoadJoinGrantSignerFromEnv()
		if err != nil {
			t.Fatalf("LoadJoinGrantSignerFromEnv() error = %v", err)
		}
		if signer != nil {
			t.Fatal("expected nil signer when unconfigured")
		}
	})

	t.Run("configured", func(t *testing.T) {
		t.Setenv("RULEBOOK_JOIN_GRANT_ISSUER", "rulebook-orgs")
		t.Setenv("RULEBOOK_JOIN_GRANT_AUDIENCE", "rulebook-sessions")
		t.Setenv("RULEBOOK_JOIN_GRANT_PRIVATE_KEY", encoded)
		signer, err := LoadJoinGrantSignerFromEnv()
		if err != nil {
			t.Fatalf("LoadJoinGrantSignerFromEnv() error = %v", err)
		}
		if signer == nil {
			t.Fatal("expected configured signer")
		}
		if signer.ttl != 5*time.Minute {
			t.Errorf("ttl = %v, want default 5m", signer.ttl)
		}
	})

	t.Run("partial config", func(t *testing.T) {
		t.Setenv("RULEBOOK_JOIN_GRANT_ISSUER", "rulebook-orgs")
		t.Setenv("RULEBOOK_JOIN_GRANT_AUDIENCE", "")
		t.Setenv("RULEBOOK_JOIN_GRANT_PRIVATE_KEY", "")
		if _, err := LoadJoinGrantSignerFromEnv(); err == nil {
			t.Fatal("expected error for partial configuration")
		}
	})

	t.Run("bad key length", func(t *testing.T) {
		t.Setenv("RULEBOOK_JOIN_GRANT_ISSUER", "rulebook-orgs")
		t.Setenv("RULEBOOK_JOIN_GRANT_AUDIENCE", "rulebook-sessions")
		t.Setenv("RULEBOOK_JOIN_GRANT_PRIVATE_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
		if _, err := LoadJoinGrantSignerFromEnv(); err == nil {
			t.Fatal("expected error for short key")
		}
	})
}

func TestRedeemMintsJoinGrant(t *testing.T) {
	public, private := newTestKeyPair(t)
	f := newFixture(t)
	signer := NewJoinGrantSigner("rulebook-orgs", "rulebook-sessions", private, 5*time.Minute)
	signer.clock = f.clock
	f.service.grants = signer

	inv := f.createInvite(t, invite.CreateInviteInput{})
	result, err := f.service.RedeemInvite(context.Background(), inv.Token, "user-1", false)
	if err != nil {
		t.Fatalf("RedeemInvite() error = %v", err)
	}
	if result.JoinGrant == "" {
		t.Fatal("JoinGrant is empty")
	}

	claims, err := VerifyJoinGrant(result.JoinGrant, "rulebook-orgs", "rulebook-sessions", public, f.clock)
	if err != nil {
		t.Fatalf("VerifyJoinGrant() error = %v", err)
	}
	if claims.OrganizationID != "org-1" || claims.Subject != "user-1" {
		t.Errorf("claims = %+v, want org-1/user-1", claims)
	}
}
