package grant

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidGrant covers every verification failure: bad signature,
	// wrong algorithm, wrong issuer, malformed token or missing claims.
	ErrInvalidGrant = errors.New("invalid join grant")
	// ErrExpiredGrant is returned for a well-formed grant past its expiry.
	ErrExpiredGrant = errors.New("join grant expired")
)

// Claims binds one player to one match.
type Claims struct {
	MatchID  string `json:"mid"`
	PlayerID string `json:"pid"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 join grants.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a grant letting playerID join matchID.
func (i *Issuer) Issue(matchID, playerID string) (string, error) {
	now := i.now()
	claims := Claims{
		MatchID:  matchID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign join grant: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the claims.
func (i *Issuer) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredGrant
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidGrant, err)
	}
	if claims.MatchID == "" || claims.PlayerID == "" {
		return Claims{}, fmt.Errorf("%w: missing match or player", ErrInvalidGrant)
	}
	return claims, nil
}
