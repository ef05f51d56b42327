/*
policy.go - Capability-based access policy

PURPOSE:
  Decides whether an identity may simulate an attendance. The identity is
  a set of granted capabilities; roles are mapped to capabilities by the
  identity provider (auth package), so the policy never compares role
  strings.

DECISION:
  Two terminal outcomes, Allow or Deny(reason). The required capability is
  necessary: without it the answer is Deny("forbidden") whatever the record
  says. Record rules (e.g. AssignmentRule) can only narrow an Allow.

EVALUATION ORDER:
  Authorize(identity, nil) checks the capability alone. The service calls
  it before touching any store, so an unauthorized caller learns nothing,
  not even whether the attendance exists. Authorize(identity, &att) then
  applies the record rules once the attendance has been loaded.

SEE ALSO:
  - service.go: Evaluation order in the composed flow
  - auth/jwt.go: Builds Identity from a bearer token
*/
package simulation

import "sort"

// Capability is a permission an identity may hold.
type Capability string

const (
	CapSimulate           Capability = "simulate"
	CapSupervise          Capability = "supervise"
	CapManageCoefficients Capability = "manage_coefficients"
)

// ReasonForbidden is the denial reason for a missing capability.
const ReasonForbidden = "forbidden"

// =============================================================================
// IDENTITY
// =============================================================================

// Identity is the authenticated caller.
type Identity struct {
	Subject      string
	Roles        []string
	capabilities map[Capability]struct{}
}

// NewIdentity creates an identity holding caps.
func NewIdentity(subject string, roles []string, caps ...Capability) Identity {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return Identity{Subject: subject, Roles: roles, capabilities: set}
}

// Has reports whether the identity holds c.
func (id Identity) Has(c Capability) bool {
	_, ok := id.capabilities[c]
	return ok
}

// Capabilities returns the granted capabilities, sorted.
func (id Identity) Capabilities() []Capability {
	out := make([]Capability, 0, len(id.capabilities))
	for c := range id.capabilities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// DECISION
// =============================================================================

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string // set when denied
}

func Allow() Decision             { return Decision{Allowed: true} }
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Err returns nil for Allow and a ForbiddenError for Deny.
func (d Decision) Err(subject string) error {
	if d.Allowed {
		return nil
	}
	return &ForbiddenError{Subject: subject, Reason: d.Reason}
}

// =============================================================================
// POLICY
// =============================================================================

// RecordRule narrows an Allow based on attendance attributes.
type RecordRule interface {
	Check(id Identity, att Attendance) Decision
}

// Policy requires one capability and then applies record rules.
type Policy struct {
	Required Capability
	Rules    []RecordRule
}

// NewPolicy returns a policy requiring required.
func NewPolicy(required Capability, rules ...RecordRule) *Policy {
	return &Policy{Required: required, Rules: rules}
}

// Authorize decides whether id may simulate att. A nil att checks the
// capability only.
func (p *Policy) Authorize(id Identity, att *Attendance) Decision {
	if !id.Has(p.Required) {
		return Deny(ReasonForbidden)
	}
	if att == nil {
		return Allow()
	}
	for _, rule := range p.Rules {
		if d := rule.Check(id, *att); !d.Allowed {
			return d
		}
	}
	return Allow()
}

// AssignmentRule restricts an assigned attendance to its assignee. Holders
// of Override bypass the rule. Unassigned attendances are open to all.
type AssignmentRule struct {
	Override Capability
}

func (r AssignmentRule) Check(id Identity, att Attendance) Decision {
	if att.AssignedTo == "" || att.AssignedTo == id.Subject {
		return Allow()
	}
	if r.Override != "" && id.Has(r.Override) {
		return Allow()
	}
	return Deny(ReasonForbidden)
}
