package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("auth: bearer token required")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrUnknownRole  = errors.New("auth: unknown role")
)

// RoleError is returned when the caller's role does not cover a rule.
type RoleError struct {
	Have Role
	Rule Rule
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("auth: %s role required to %s (token has %s)", e.Rule.Role, e.Rule.Action, e.Have)
}

// Middleware checks bearer tokens against the route policy.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap rejects requests whose token does not cover the route's rule and
// stores the caller identity for handlers that pass.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		rule, ok := m.Policy.RuleFor(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.authorize(r, rule)
		if err != nil {
			status := http.StatusUnauthorized
			var roleErr *RoleError
			if errors.As(err, &roleErr) {
				status = http.StatusForbidden
			}
			http.Error(w, err.Error(), status)
			return
		}
		role, _ := ParseRole(claims.Role)
		ctx := WithIdentity(r.Context(), role, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authorize(r *http.Request, rule Rule) (*Claims, error) {
	token := extractBearer(r)
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := ParseJWT(token, m.Secret)
	if err != nil {
		return nil, err
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !role.Covers(rule.Role) {
		return nil, &RoleError{Have: role, Rule: rule}
	}
	return claims, nil
}

func extractBearer(r *http.Request) string {
	if r == nil {
		return ""
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
