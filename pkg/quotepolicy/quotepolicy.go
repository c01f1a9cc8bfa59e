// Package quotepolicy packs and unpacks the quote approval policy of a status.
//
// A policy has two independent selectors: who is automatically allowed to
// quote, and who may quote subject to manual approval. Each selector is one of
// nobody, followers or public. Storage keeps both in a single integer: the
// automatic selector in bits 0-15 and the manual selector in bits 16-31. No
// other package should touch the raw integer.
package quotepolicy

import (
	"fmt"
	"strings"
)

// Scope is the set of accounts a selector grants.
type Scope uint8

const (
	ScopeNobody Scope = iota
	ScopeFollowers
	ScopePublic
)

const (
	flagPublic    int64 = 1 << 1
	flagFollowers int64 = 1 << 2

	manualShift = 16
	halfMask    = int64(1)<<manualShift - 1
)

// String returns the wire name of s.
func (s Scope) String() string {
	switch s {
	case ScopePublic:
		return "public"
	case ScopeFollowers:
		return "followers"
	default:
		return "nobody"
	}
}

// ParseScope maps a wire name to a Scope. Only "public" and "followers" are
// accepted; nobody is expressed by omission.
func ParseScope(raw string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "public":
		return ScopePublic, nil
	case "followers":
		return ScopeFollowers, nil
	default:
		return ScopeNobody, fmt.Errorf("unknown quote policy scope %q", raw)
	}
}

func (s Scope) flag() int64 {
	switch s {
	case ScopePublic:
		return flagPublic
	case ScopeFollowers:
		return flagFollowers
	default:
		return 0
	}
}

func scopeFromHalf(half int64) Scope {
	switch half {
	case flagPublic:
		return ScopePublic
	case flagFollowers:
		return ScopeFollowers
	default:
		return ScopeNobody
	}
}

// covers reports whether every account granted by other is granted by s.
func (s Scope) covers(other Scope) bool {
	return s >= other
}

// Policy is the decoded two-dimensional approval policy.
type Policy struct {
	Automatic Scope
	Manual    Scope
}

// Encode packs p into its storage integer.
func Encode(p Policy) int64 {
	return p.Automatic.flag() | p.Manual.flag()<<manualShift
}

// Decode unpacks a storage integer. Anything that is not a valid encoding
// fails closed: a half carrying unknown or combined flags decodes to nobody,
// and bits beyond the manual half make the whole policy nobody.
func Decode(value int64) Policy {
	if value>>(2*manualShift) != 0 {
		return Policy{}
	}
	return Policy{
		Automatic: scopeFromHalf(value & halfMask),
		Manual:    scopeFromHalf((value >> manualShift) & halfMask),
	}
}

// Normalize drops a manual selector that the automatic selector already
// covers.
func (p Policy) Normalize() Policy {
	if p.Automatic != ScopeNobody && p.Automatic.covers(p.Manual) {
		p.Manual = ScopeNobody
	}
	return p
}

// Wire renders p as the two string arrays used on the API.
func (p Policy) Wire() (automatic, manual []string) {
	return wireScope(p.Automatic), wireScope(p.Manual)
}

func wireScope(s Scope) []string {
	if s == ScopeNobody {
		return []string{}
	}
	return []string{s.String()}
}

// FromWire parses the API representation. Each array holds at most one scope.
func FromWire(automatic, manual []string) (Policy, error) {
	a, err := parseWireScope("automatic", automatic)
	if err != nil {
		return Policy{}, err
	}
	m, err := parseWireScope("manual", manual)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Automatic: a, Manual: m}, nil
}

func parseWireScope(field string, values []string) (Scope, error) {
	switch len(values) {
	case 0:
		return ScopeNobody, nil
	case 1:
		s, err := ParseScope(values[0])
		if err != nil {
			return ScopeNobody, fmt.Errorf("%s: %w", field, err)
		}
		return s, nil
	default:
		return ScopeNobody, fmt.Errorf("%s: expected at most one scope, got %d", field, len(values))
	}
}

// CurrentUser is the bucket a viewer falls into for a given policy.
type CurrentUser string

const (
	CurrentUserAutomatic CurrentUser = "automatic"
	CurrentUserManual    CurrentUser = "manual"
	CurrentUserDenied    CurrentUser = "denied"
	CurrentUserUnknown   CurrentUser = "unknown"
)

// Relation describes how a would-be quoter relates to the quoted author.
type Relation struct {
	Anonymous bool
	IsAuthor  bool
	Follows   bool
}

func (r Relation) granted(s Scope) bool {
	switch s {
	case ScopePublic:
		return true
	case ScopeFollowers:
		return r.Follows
	default:
		return false
	}
}

// Evaluate returns the bucket for r under p. Authors may always quote
// themselves, and automatic acceptance takes precedence over manual review.
func Evaluate(p Policy, r Relation) CurrentUser {
	switch {
	case r.Anonymous:
		return CurrentUserUnknown
	case r.IsAuthor:
		return CurrentUserAutomatic
	case r.granted(p.Automatic):
		return CurrentUserAutomatic
	case r.granted(p.Manual):
		return CurrentUserManual
	default:
		return CurrentUserDenied
	}
}
