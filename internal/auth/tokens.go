package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"healthcrm/internal/common"
)

const tokenIssuer = "healthcrm-auth"

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager issues HS256 session tokens and verifies both its own tokens
// and, when a JWKS is configured, tokens signed by an external identity
// provider.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	jwks   *keyfunc.JWKS
	now    func() time.Time
}

// NewTokenManager creates a token manager signing with secret
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithJWKS enables verification of asymmetric tokens against jwks.
func (m *TokenManager) WithJWKS(jwks *keyfunc.JWKS) *TokenManager {
	m.jwks = jwks
	return m
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for the user.
func (m *TokenManager) Issue(userID uuid.UUID, name, email string, roles RoleSet) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Name:  name,
		Email: email,
		Roles: roles.Names(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// KeyFunc resolves the verification key for a token. HMAC tokens use the
// local secret, everything else is looked up in the JWKS.
func (m *TokenManager) KeyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		return m.secret, nil
	}
	if m.jwks == nil {
		return nil, fmt.Errorf("%w: unexpected signing method %v", common.ErrInvalidToken, token.Header["alg"])
	}
	return m.jwks.Keyfunc(token)
}

// Parse verifies a token string and returns its claims.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.KeyFunc,
		jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// PrincipalFromClaims converts verified claims into a Principal. Subjects
// that are not UUIDs (external identity providers) are mapped to a stable
// name-based UUID.
func PrincipalFromClaims(claims *Claims) (*Principal, error) {
	if claims == nil || claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		userID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(claims.Issuer+"#"+claims.Subject))
	}

	roles, _ := ParseRoles(claims.Roles)
	p := &Principal{
		UserID:    userID,
		Name:      claims.Name,
		Email:     claims.Email,
		Roles:     roles,
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
