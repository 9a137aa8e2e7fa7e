package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

// Claims carries the authorization result the ledger trusts: who is calling,
// which wallet owner they act as, and their roles.
type Claims struct {
	Type      TokenType `json:"type"`
	OwnerType string    `json:"owner_type,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// ActorID is the subject of the token.
func (c *Claims) ActorID() string {
	return c.Subject
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type TokenManager interface {
	GenerateAccessToken(subject, ownerType, ownerID string, roles []string, ttl time.Duration) (string, error)
	GenerateServiceToken(subject string, roles []string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
}

func NewTokenManager(secret, issuer string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
		issuer: issuer,
	}
}

func (m *tokenManager) sign(claims Claims, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.Issuer = m.issuer
	claims.RegisteredClaims.Audience = jwt.ClaimStrings{audience}
	claims.RegisteredClaims.ID = uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) GenerateAccessToken(subject, ownerType, ownerID string, roles []string, ttl time.Duration) (string, error) {
	claims := Claims{
		Type:      TokenTypeAccess,
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}
	return m.sign(claims, "ledger-api", ttl)
}

func (m *tokenManager) GenerateServiceToken(subject string, roles []string, ttl time.Duration) (string, error) {
	claims := Claims{
		Type:  TokenTypeService,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}
	return m.sign(claims, "ledger-api", ttl)
}

func (m *tokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience("ledger-api"))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenTypeAccess && claims.Type != TokenTypeService {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
