package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"classbook/internal/domain/actor"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const actorContextKey = "classbook.actor"

// Claims are the bearer token claims. Subject carries the actor ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// IssueToken signs an HS256 token for an actor.
// PRE: secret is non-empty, role is a known role
// POST: Returns a token valid for ttl
func IssueToken(secret []byte, a actor.Actor, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies raw and returns the actor it names.
// PRE: raw is a compact JWS
// POST: Returns an actor with a known role, or an error
func ParseToken(secret []byte, raw string) (actor.Actor, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return actor.Actor{}, err
	}
	if !tok.Valid || claims.Subject == "" || !actor.IsValidRole(claims.Role) || claims.Role == actor.RoleSystem {
		return actor.Actor{}, jwt.ErrTokenInvalidClaims
	}
	return actor.Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// Auth returns middleware that requires a valid bearer token and stores the actor.
func Auth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return unauthorized(c, "missing bearer token")
			}
			a, err := ParseToken(secret, raw)
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			c.Set(actorContextKey, a)
			return next(c)
		}
	}
}

// RequireRole returns middleware that blocks actors without one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFromContext(c)
			if !ok {
				return unauthorized(c, "not authenticated")
			}
			if !roleSet[a.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "FORBIDDEN", "message": "role not permitted"})
			}
			return next(c)
		}
	}
}

// ActorFromContext returns the authenticated actor.
func ActorFromContext(c echo.Context) (actor.Actor, bool) {
	a, ok := c.Get(actorContextKey).(actor.Actor)
	return a, ok
}

// WithActor stores a in c. Intended for use in tests.
func WithActor(c echo.Context, a actor.Actor) {
	c.Set(actorContextKey, a)
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": msg})
}
