package router

import (
	"sort"
	"strings"

	"github.com/wikihost/engine/state"
)

// Handler is a route's business logic: it receives the fully-matched,
// body-prepared RequestState and must end the response, by calling one
// of RequestState's senders and returning its ErrStreamEnded result.
type Handler func(s *state.RequestState) error

// RecoveryHandler renders a handler (or body-prep, or security-check)
// error, provided headers have not already been sent (spec.md §4.7).
type RecoveryHandler func(s *state.RequestState, err error) error

// Node is a Route Node (spec.md §3): a node in the hierarchical route
// tree, optionally matching a path segment, restricting which methods
// and body formats reach its handlers, and optionally gating entry with
// named security checks.
type Node struct {
	parent *Node

	matcher *PathMatcher // nil only for the root

	methods     map[string]bool // empty means no method may terminate here (Handle always adds one)
	bodyFormat  state.BodyFormat
	denyFinal   bool
	security    []string
	children    []*Node
	handlers    []Handler
	recovery    RecoveryHandler
	routeLabel  string // human-readable path, for RoutePath()/logging
}

// NewRoot creates the tree's root node. Per spec.md §3, the root
// matches everything and is the only node the engine constructs
// directly; every other node is reached via Node.Route/.../.Handle.
func NewRoot() *Node {
	return &Node{routeLabel: ""}
}

// Route mounts a child node under n with the given matcher, returning
// the child so routes can be built up fluently:
//
//	root.Route(router.Literal("/wiki")).
//	    Route(router.MustRegex(`^/(?P<slug>[^/]+)`)).
//	    Handle("GET", state.BodyIgnore, showPage)
func (n *Node) Route(matcher *PathMatcher) *Node {
	child := &Node{parent: n, matcher: matcher, routeLabel: n.routeLabel + "/" + matcherLabel(matcher)}
	n.children = append(n.children, child)
	return child
}

func matcherLabel(m *PathMatcher) string {
	if m == nil {
		return ""
	}
	if m.kind == kindLiteral {
		return strings.TrimPrefix(m.literal, "/")
	}
	return ":pattern"
}

// Handle registers handlers on n for method, declaring the body format
// the handlers expect. A node accumulates one handler chain; calling
// Handle more than once with different methods shares that chain across
// every method it's called with (spec.md §3: "ordered list of
// handlers" is a single per-node list, not one per method).
func (n *Node) Handle(method string, bodyFormat state.BodyFormat, handlers ...Handler) *Node {
	if n.methods == nil {
		n.methods = make(map[string]bool)
	}
	n.methods[strings.ToUpper(method)] = true
	n.bodyFormat = bodyFormat
	n.handlers = append(n.handlers, handlers...)
	return n
}

// DenyFinal marks n so it can only ever contribute path captures, never
// terminate a match itself (spec.md §3).
func (n *Node) DenyFinal() *Node {
	n.denyFinal = true
	return n
}

// Secure attaches named security checks to n, evaluated (in
// registration order, across the whole matched chain) before n's
// handlers run.
func (n *Node) Secure(checkNames ...string) *Node {
	n.security = append(n.security, checkNames...)
	return n
}

// Recover installs n's recovery handler, used instead of the router's
// default when a handler anywhere at or below n fails.
func (n *Node) Recover(fn RecoveryHandler) *Node {
	n.recovery = fn
	return n
}

func (n *Node) allowsMethod(method string) bool {
	if len(n.methods) == 0 {
		return false
	}
	return n.methods[method]
}

// sortedChildren returns n's children ordered by matcher specificity
// (literal, then regex-with-captures, then open regex), stably
// preserving registration order within each tier — spec.md §4.5's tie-
// break rule.
func sortedChildren(children []*Node) []*Node {
	out := make([]*Node, len(children))
	copy(out, children)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].matcher.specificity() > out[j].matcher.specificity()
	})
	return out
}
