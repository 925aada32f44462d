package domain

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rulebookhq/rulebook/internal/platform/id"
	"github.com/rulebookhq/rulebook/internal/services/orgs/invite"
)

// joinGrantEnv holds raw env values before post-parse validation.
type joinGrantEnv struct {
	Issuer     string        `env:"RULEBOOK_JOIN_GRANT_ISSUER"`
	Audience   string        `env:"RULEBOOK_JOIN_GRANT_AUDIENCE"`
	PrivateKey string        `env:"RULEBOOK_JOIN_GRANT_PRIVATE_KEY"`
	TTL        time.Duration `env:"RULEBOOK_JOIN_GRANT_TTL"         envDefault:"5m"`
}

// JoinGrantSigner mints short-lived signed membership proofs handed to the
// session layer after a successful redemption.
type JoinGrantSigner struct {
	issuer   string
	audience string
	key      ed25519.PrivateKey
	ttl      time.Duration
	clock    func() time.Time
	newID    func() (string, error)
}

// joinGrantClaims is the claims shape carried by a join grant.
type joinGrantClaims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"org"`
	InviteID       string `json:"invite_id"`
	Role           string `json:"role"`
}

// LoadJoinGrantSignerFromEnv reads join grant signing configuration.
//
// The signer is optional: when none of the join grant variables are set it
// returns (nil, nil) and redemption proceeds without minting grants. A
// partially configured signer is an error.
func LoadJoinGrantSignerFromEnv() (*JoinGrantSigner, error) {
	var raw joinGrantEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse join grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	privateKey := strings.TrimSpace(raw.PrivateKey)
	if issuer == "" && audience == "" && privateKey == "" {
		return nil, nil
	}
	if issuer == "" {
		return nil, fmt.Errorf("RULEBOOK_JOIN_GRANT_ISSUER is required")
	}
	if audience == "" {
		return nil, fmt.Errorf("RULEBOOK_JOIN_GRANT_AUDIENCE is required")
	}
	if privateKey == "" {
		return nil, fmt.Errorf("RULEBOOK_JOIN_GRANT_PRIVATE_KEY is required")
	}
	keyBytes, err := decodeBase64(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode join grant private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("join grant private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if raw.TTL <= 0 {
		return nil, fmt.Errorf("join grant ttl must be positive")
	}
	return NewJoinGrantSigner(issuer, audience, ed25519.PrivateKey(keyBytes), raw.TTL), nil
}

// NewJoinGrantSigner constructs a join grant signer.
func NewJoinGrantSigner(issuer, audience string, key ed25519.PrivateKey, ttl time.Duration) *JoinGrantSigner {
	return &JoinGrantSigner{
		issuer:   issuer,
		audience: audience,
		key:      key,
		ttl:      ttl,
		clock:    time.Now,
		newID:    id.NewID,
	}
}

// Mint signs a join grant for a freshly granted membership. A nil signer
// mints nothing and reports no error.
func (g *JoinGrantSigner) Mint(organizationID, inviteID, userID string, role invite.Role) (string, error) {
	if g == nil {
		return "", nil
	}
	if g.issuer == "" || g.audience == "" || len(g.key) != ed25519.PrivateKeySize {
		return "", errors.New("join grant signer is not configured")
	}

	jwtID, err := g.newID()
	if err != nil {
		return "", fmt.Errorf("generate join grant id: %w", err)
	}

	now := g.clock().UTC()
	claims := joinGrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Audience:  jwt.ClaimStrings{g.audience},
			Subject:   userID,
			ID:        jwtID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
		OrganizationID: organizationID,
		InviteID:       inviteID,
		Role:           invite.RoleLabel(role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("sign join grant: %w", err)
	}
	return signed, nil
}

// JoinGrantClaims captures verified join grant claims.
type JoinGrantClaims struct {
	Issuer         string
	Audience       []string
	Subject        string
	JWTID          string
	ExpiresAt      time.Time
	OrganizationID string
	InviteID       string
	Role           string
}

// VerifyJoinGrant checks a join grant signature and registered claims
// against the expected issuer and audience.
func VerifyJoinGrant(grant, issuer, audience string, key ed25519.PublicKey, now func() time.Time) (JoinGrantClaims, error) {
	if now == nil {
		now = time.Now
	}
	var parsed joinGrantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return JoinGrantClaims{}, fmt.Errorf("verify join grant: %w", err)
	}
	if parsed.ID == "" {
		return JoinGrantClaims{}, errors.New("join grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return JoinGrantClaims{}, errors.New("join grant exp is required")
	}

	return JoinGrantClaims{
		Issuer:         parsed.Issuer,
		Audience:       []string(parsed.Audience),
		Subject:        parsed.Subject,
		JWTID:          parsed.ID,
		ExpiresAt:      parsed.ExpiresAt.Time.UTC(),
		OrganizationID: parsed.OrganizationID,
		InviteID:       parsed.InviteID,
		Role:           parsed.Role,
	}, nil
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
