package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pricing-engine/pkg/config"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Verifier checks HS256 admin tokens against the shared secret and issuer.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify parses raw and returns the actor it was issued for.
func (v *Verifier) Verify(raw string) (Actor, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.key); err != nil {
		return Actor{}, err
	}
	userID, _ := uuid.Parse(claims.Subject) // checked by Claims.Validate
	return Actor{UserID: userID, Role: claims.Role, TokenID: claims.ID}, nil
}

// Issue signs a token for actor valid from now. The identity service mints
// production tokens; this serves local tooling and tests.
func (v *Verifier) Issue(now time.Time, actor Actor) (string, error) {
	if v.ttl <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if actor.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !actor.Role.IsValid() {
		return "", fmt.Errorf("invalid admin role %q", actor.Role)
	}
	jti := strings.TrimSpace(actor.TokenID)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func (v *Verifier) key(token *jwt.Token) (any, error) {
	if token.Method != signingMethod {
		return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
	}
	return v.secret, nil
}
