package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"school-service/internal/config"
	"school-service/internal/model"
)

// AccessClaims is the signed payload of the short-lived access
// credential: user id, role and the tenant claim for SchoolAdmins.
type AccessClaims struct {
	UserID   string  `json:"id"`
	Role     string  `json:"role"`
	SchoolID *string `json:"schoolId,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the user id; role and tenant are re-read
// from the user record at refresh time so a re-login picks up changes.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Tokens mints and verifies both credential kinds.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL(),
		refreshTTL:    cfg.RefreshTTL(),
	}
}

func (t *Tokens) AccessTTL() time.Duration  { return t.accessTTL }
func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

// NewAccessToken signs an access credential for user. The schoolId claim
// is present only for SchoolAdmins.
func (t *Tokens) NewAccessToken(user *model.AdminUser) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	if user.Role == model.RoleSchoolAdmin && user.SchoolID != nil {
		claims.SchoolID = user.SchoolID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.accessSecret)
}

func (t *Tokens) NewRefreshToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// iat has second granularity; the jti keeps two issuances
			// within the same second from minting identical tokens,
			// which would let a rotated-out token keep working.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.refreshSecret)
}

func (t *Tokens) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.accessSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (t *Tokens) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.refreshSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
