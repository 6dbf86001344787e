package token

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// assertionClaims maps the Entra ID claims the broker relies on. "appid" is
// the v1.0 token form of the client identifier, "azp" the v2.0 form; either
// may be present depending on the issuing endpoint. The user identity is the
// object ID where available, falling back to the subject.
type assertionClaims struct {
	TenantID        string `json:"tid"`
	AppID           string `json:"appid"`
	AuthorizedParty string `json:"azp"`
	ObjectID        string `json:"oid"`
	jwt.RegisteredClaims
}

// JWTParser decodes an assertion's claims without verifying its signature.
// Signature and issuer validation happen at the identity provider when the
// assertion is exchanged; the broker only needs the identity fields and
// expiry to key and age its cache entries.
type JWTParser struct {
	parser *jwt.Parser
}

func NewJWTParser() *JWTParser {
	return &JWTParser{
		parser: jwt.NewParser(),
	}
}

// ParseToken extracts the tenant, client and user identity along with the
// absolute expiry from the assertion. It fails when the assertion is not a
// structurally valid JWT or a required claim is missing.
func (p *JWTParser) ParseToken(_ context.Context, assertion string) (Info, error) {
	claims := &assertionClaims{}

	_, _, err := p.parser.ParseUnverified(assertion, claims)
	if err != nil {
		return Info{}, fmt.Errorf("could not decode assertion: %w", err)
	}

	clientID := claims.AppID
	if clientID == "" {
		clientID = claims.AuthorizedParty
	}

	userID := claims.ObjectID
	if userID == "" {
		userID = claims.Subject
	}

	if claims.TenantID == "" {
		return Info{}, fmt.Errorf("assertion has no tenant claim")
	}
	if clientID == "" {
		return Info{}, fmt.Errorf("assertion has no client claim")
	}
	if userID == "" {
		return Info{}, fmt.Errorf("assertion has no user claim")
	}
	if claims.ExpiresAt == nil {
		return Info{}, fmt.Errorf("assertion has no expiry claim")
	}

	return Info{
		TenantID: claims.TenantID,
		ClientID: clientID,
		UserID:   userID,
		Expiry:   claims.ExpiresAt.Time.UTC(),
	}, nil
}

var _ Parser = (*JWTParser)(nil)
