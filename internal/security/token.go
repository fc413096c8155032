package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired indicates a structurally valid token past its expiry.
var ErrTokenExpired = errors.New("security: token expired")

// ErrTokenMalformed indicates a token that fails structure or signature checks.
var ErrTokenMalformed = errors.New("security: token malformed")

// Claims carries the session payload: the standard registered claims plus the
// authenticated user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"uid"`
}

// IssueToken produces a signed HS256 session token embedding userID with an
// expiry of validity from now. The token is self-contained; nothing is
// persisted server-side and a leaked token stays valid until expiry.
func IssueToken(userID uint64, secret []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the embedded user id.
// Returns ErrTokenExpired for expired tokens and ErrTokenMalformed for every
// other validation failure, including wrong signing keys.
func ParseToken(tokenString string, secret []byte) (uint64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenMalformed
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, ErrTokenMalformed
	}
	return claims.UserID, nil
}
