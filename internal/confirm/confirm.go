// Package confirm issues and verifies approval tokens for fee-bearing
// registry writes. A token binds the approval to one exact content address,
// so a pointer write can never be submitted for anything other than what the
// user saw at the confirmation prompt.
package confirm

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken reports a token that is expired, tampered with, or was
// issued for a different address.
var ErrInvalidToken = errors.New("invalid confirmation token")

// ActionAnchor is the only confirmable action today.
const ActionAnchor = "anchor_pointer"

// Claims carried by an approval token.
type Claims struct {
	Action         string `json:"action"`
	ContentAddress string `json:"content_address"`
	Owner          string `json:"owner"`
	jwt.RegisteredClaims
}

// Service signs and verifies approval tokens with an HMAC key.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{signingKey: []byte(signingKey), ttl: ttl}
}

// Issue mints a token approving the anchoring of addr for owner. The token is
// handed to the UI along with the confirmation prompt and comes back on
// approval.
func (s *Service) Issue(owner, addr string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Action:         ActionAnchor,
		ContentAddress: addr,
		Owner:          owner,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign confirmation token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and that it approves exactly (owner, addr).
func (s *Service) Verify(tokenString, owner, addr string) error {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Action != ActionAnchor || claims.Owner != owner || claims.ContentAddress != addr {
		return ErrInvalidToken
	}
	return nil
}
