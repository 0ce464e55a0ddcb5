package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	"go.uber.org/zap"
)

const devSecret = "detailflow-development-secret"

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
	ErrNoSecret     = errors.New("auth_jwt_secret_required")
)

// Actor is the authenticated employee behind a request.
type Actor struct {
	EmployeeID snowflake.ID
	Role       string
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier issues and checks HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewVerifier(cfg config.Config, clk clock.Clock, log *zap.Logger) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrNoSecret
		}
		log.Warn("AUTH_JWT_SECRET not set, using development secret")
		secret = devSecret
	}
	ttl := time.Duration(cfg.AuthTokenTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: cfg.AuthJWTIssuer,
		ttl:    ttl,
		clock:  clk,
	}, nil
}

func (v *Verifier) Issue(actor Actor) (string, error) {
	if actor.EmployeeID == 0 || strings.TrimSpace(actor.Role) == "" {
		return "", ErrInvalidToken
	}
	now := v.clock.Now()
	claims := Claims{
		Role: strings.ToUpper(strings.TrimSpace(actor.Role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.EmployeeID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (v *Verifier) Verify(raw string) (Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Actor{}, ErrMissingToken
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Actor{}, ErrTokenExpired
		}
		return Actor{}, ErrInvalidToken
	}

	id, err := snowflake.ParseString(claims.Subject)
	if err != nil || id == 0 || claims.Role == "" {
		return Actor{}, ErrInvalidToken
	}
	return Actor{EmployeeID: id, Role: claims.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
