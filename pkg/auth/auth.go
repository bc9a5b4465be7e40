// Package auth verifies bearer tokens issued by the hosted auth service,
// and tells handlers who is calling.
//
// Tokens are HS256 JWTs. The subject is the user id, and "app_metadata.role"
// carries the role ("admin" for staff; anything else is a client).
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
)

type Role string

const (
	Client Role = "client"
	Admin  Role = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

type User struct {
	Id    string
	Email string
	Role  Role
}

func (u User) IsAdmin() bool {
	return u.Role == Admin
}

type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

type Claims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
}

type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

type VerifierOption func(*Verifier) *Verifier

// WithAudience requires the "aud" claim to contain aud.
func WithAudience(aud string) VerifierOption {
	return func(v *Verifier) *Verifier {
		v.audience = aud
		return v
	}
}

// WithLeeway tolerates clock skew on "exp" and "nbf".
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) *Verifier {
		v.leeway = d
		return v
	}
}

func NewVerifier(secret string, options ...VerifierOption) *Verifier {
	v := &Verifier{secret: []byte(secret)}
	for _, opt := range options {
		v = opt(v)
	}
	return v
}

// Verify parses a token and returns its user.
//
// Error: wraps ErrInvalidToken when the token is malformed, badly signed or expired.
func (v *Verifier) Verify(token string) (User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := new(Claims)
	if _, err := jwt.ParseWithClaims(
		token, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		opts...,
	); err != nil {
		return User{}, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return User{}, errors.Join(ErrInvalidToken, errors.New("no subject"))
	}

	role := Client
	if Role(claims.AppMetadata.Role) == Admin {
		role = Admin
	}
	return User{Id: claims.Subject, Email: claims.Email, Role: role}, nil
}

// Issue signs a token for u which expires after ttl.
func Issue(secret string, u User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Id,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:       u.Email,
		AppMetadata: AppMetadata{Role: string(u.Role)},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

const userKey = "confix.user"

// UserOf returns the caller verified by Authenticate.
func UserOf(c echo.Context) (User, bool) {
	u, ok := c.Get(userKey).(User)
	return u, ok
}

func bearer(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate verifies the bearer token if it is given.
//
// Requests without Authorization header pass anonymously; bad tokens are 401.
func Authenticate(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			token, ok := bearer(c)
			if !ok {
				return apierr.Unauthorized("send a token as \"Authorization: Bearer <token>\"")
			}
			u, err := v.Verify(token)
			if err != nil {
				c.Logger().Debugf("token rejected: %s", err)
				return apierr.Unauthorized("sign in again")
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserOf(c); !ok {
			return apierr.Unauthorized("sign in")
		}
		return next(c)
	}
}

// RequireAdmin rejects anonymous requests with 401, and non-admin users with 403.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := UserOf(c)
		if !ok {
			return apierr.Unauthorized("sign in")
		}
		if !u.IsAdmin() {
			return apierr.Forbidden()
		}
		return next(c)
	}
}

// CanSee reports whether u may see a resource owned by ownerId.
//
// Admins see everything. Resources without owner are visible to everyone.
func CanSee(u User, authenticated bool, ownerId string) bool {
	if ownerId == "" {
		return true
	}
	if !authenticated {
		return false
	}
	return u.IsAdmin() || u.Id == ownerId
}
