// Package security implements the Security Check Registry (spec.md §4.5
// step 5, expanded by SPEC_FULL.md §4.12): named, registerable
// predicates a Route Node can require before its handlers run.
package security

import "github.com/wikihost/engine/senderror"

// Target is the minimal surface a Check needs from a RequestState:
// reading a header and reading/writing the user/session slot. Kept
// separate from package state (rather than importing *state.RequestState
// directly) so state never needs to import security back.
type Target interface {
	Header(name string) string
	User() any
	SetUser(v any)
}

// Check is a named predicate evaluated against a request. It returns
// nil to allow the request through, or a *senderror.SendError to reject
// it (conventionally 401/403).
type Check func(t Target) error

// Registry is a name→Check map a Route Node's declared security-check
// names are resolved against at dispatch time.
type Registry struct {
	checks map[string]Check
}

// NewRegistry returns an empty Registry. Built-in checks (RequestedWithHeader,
// BearerJWT) are constructed and registered explicitly by the caller,
// since they need per-deployment configuration (tokens, secrets).
func NewRegistry() *Registry {
	r := &Registry{checks: make(map[string]Check)}
	return r
}

// Register adds (or replaces) a named check.
func (r *Registry) Register(name string, check Check) {
	r.checks[name] = check
}

// Lookup returns the named check, or (nil, false) if unregistered.
func (r *Registry) Lookup(name string) (Check, bool) {
	c, ok := r.checks[name]
	return c, ok
}

// Evaluate runs every named check in order against t, returning the
// first failure (spec.md §4.5 step 5: "first failure wins").
func (r *Registry) Evaluate(t Target, names []string) error {
	for _, name := range names {
		check, ok := r.checks[name]
		if !ok {
			return senderror.Internal("security: unregistered check " + name)
		}
		if err := check(t); err != nil {
			return err
		}
	}
	return nil
}
