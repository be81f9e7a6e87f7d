package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "macsvc"

// PassTokenService mints and validates the short-lived signed tokens that
// authorize wallet pass downloads. Apple Wallet fetches the pass archive
// with a plain GET — no session cookie travels with it — so issuance hands
// the client a token bound to the ticket, and the pass endpoint accepts
// that token in place of a session.
//
// Tokens are HS256-signed with the ticket ID as subject. They carry no user
// identity and grant nothing beyond downloading one pass.
type PassTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewPassTokenService creates a PassTokenService. The secret should be at
// least 32 bytes of random data in production:
//
//	PASS_TOKEN_SECRET=$(openssl rand -hex 32)
func NewPassTokenService(secret string, ttl time.Duration) (*PassTokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: pass token secret must be at least 16 characters")
	}
	return &PassTokenService{secret: []byte(secret), ttl: ttl}, nil
}

type passClaims struct {
	jwt.RegisteredClaims
}

// Generate signs a download token for the given ticket.
func (s *PassTokenService) Generate(ticketID string) (string, error) {
	now := time.Now()

	c := passClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ticketID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing pass token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a download token, returning the ticket ID it
// was minted for. Restricting the accepted algorithms to HS256 closes the
// algorithm-confusion hole where a token claiming alg "none" slips through.
func (s *PassTokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&passClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: pass token expired")
		}
		return "", fmt.Errorf("auth: invalid pass token: %w", err)
	}

	c, ok := token.Claims.(*passClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("auth: invalid pass token claims")
	}
	return c.Subject, nil
}
