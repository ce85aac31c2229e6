// Package auth resolves who is calling from a bearer token and the request origin.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Caller is the authorization context handed to store operations.
// The zero value is an anonymous public caller.
type Caller struct {
	UserID                string
	IsAdmin               bool
	IsPartner             bool
	IsJurisdictionalAdmin bool
	JurisdictionIDs       []string
	// PartnerOrigin is set when the request came from a configured partner site.
	PartnerOrigin bool
}

// Staff reports whether the caller holds a staff role.
func (c Caller) Staff() bool {
	return c.IsAdmin || c.IsPartner || c.IsJurisdictionalAdmin
}

// Privileged reports whether the caller may see staff-only listing data.
func (c Caller) Privileged() bool {
	return c.Staff() || c.PartnerOrigin
}

// Anonymous reports whether no user is signed in.
func (c Caller) Anonymous() bool {
	return c.UserID == ""
}

// InJurisdiction reports whether the caller is scoped to id. Admins are scoped everywhere.
func (c Caller) InJurisdiction(id string) bool {
	return c.IsAdmin || slices.Contains(c.JurisdictionIDs, id)
}

// Claims is the token payload.
type Claims struct {
	IsAdmin               bool     `json:"isAdmin,omitempty"`
	IsPartner             bool     `json:"isPartner,omitempty"`
	IsJurisdictionalAdmin bool     `json:"isJurisdictionalAdmin,omitempty"`
	Jurisdictions         []string `json:"jurisdictions,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses token and returns the caller it identifies.
func (v *Verifier) Verify(token string) (Caller, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Caller{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Caller{
		UserID:                claims.Subject,
		IsAdmin:               claims.IsAdmin,
		IsPartner:             claims.IsPartner,
		IsJurisdictionalAdmin: claims.IsJurisdictionalAdmin,
		JurisdictionIDs:       claims.Jurisdictions,
	}, nil
}

// Sign issues a token for c valid for ttl.
func (v *Verifier) Sign(c Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IsAdmin:               c.IsAdmin,
		IsPartner:             c.IsPartner,
		IsJurisdictionalAdmin: c.IsJurisdictionalAdmin,
		Jurisdictions:         c.JurisdictionIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
