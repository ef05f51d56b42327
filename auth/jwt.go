/*
Package auth is the identity provider in front of the simulation core.

PURPOSE:
  Turns a bearer token into a simulation.Identity. Tokens are HS256 JWTs
  carrying the subject and its role names; roles are mapped to
  capabilities through a configurable table, so adding a role never
  touches the policy.

TOKEN CLAIMS:
  sub    subject (operator login)
  roles  []string, e.g. ["calculista"]
  exp    expiry, required
  jti    random id (uuid)

DEFAULT ROLES:
  calculista → simulate
  supervisor → simulate, supervise
  admin      → simulate, supervise, manage_coefficients

SEE ALSO:
  - middleware.go: HTTP middleware using Authenticator
  - simulation/policy.go: Consumes the capabilities
*/
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lifecaller/simulator/simulation"
)

// ErrUnauthenticated is returned for a missing, malformed or expired token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Role names used by the front end.
const (
	RoleCalculist  = "calculista"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// RoleMap maps a role name to the capabilities it grants.
type RoleMap map[string][]simulation.Capability

// DefaultRoles returns the built-in role table.
func DefaultRoles() RoleMap {
	return RoleMap{
		RoleCalculist:  {simulation.CapSimulate},
		RoleSupervisor: {simulation.CapSimulate, simulation.CapSupervise},
		RoleAdmin:      {simulation.CapSimulate, simulation.CapSupervise, simulation.CapManageCoefficients},
	}
}

// Capabilities returns the union of capabilities granted by roles. Unknown
// roles grant nothing.
func (m RoleMap) Capabilities(roles []string) []simulation.Capability {
	var caps []simulation.Capability
	for _, r := range roles {
		caps = append(caps, m[r]...)
	}
	return caps
}

// Claims is the JWT payload.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies tokens.
type Authenticator struct {
	secret []byte
	roles  RoleMap
	now    func() time.Time
}

func NewAuthenticator(secret string, roles RoleMap) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if roles == nil {
		roles = DefaultRoles()
	}
	return &Authenticator{secret: []byte(secret), roles: roles, now: time.Now}, nil
}

// Issue signs a token for subject valid for ttl.
func (a *Authenticator) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Identify verifies raw and builds the identity it describes.
func (a *Authenticator) Identify(raw string) (simulation.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return simulation.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return simulation.Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return simulation.NewIdentity(claims.Subject, claims.Roles, a.roles.Capabilities(claims.Roles)...), nil
}
