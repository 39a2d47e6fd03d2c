package validate

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/wikihost/engine/router"
	"github.com/wikihost/engine/senderror"
	"github.com/wikihost/engine/state"
)

// RegisterZodRoutes installs instance onto parent's route tree, the
// installer spec.md §4.6 requires for a zodRoute descriptor
// ("installable on any Route Node via registerZodRoutes(parent,
// instance, methodKeys)"). It walks instance.Path into a chain of
// router.Node matchers — a ":name" segment becomes a named capture
// (the convention route_test.go's "/wiki/:slug" already assumes),
// anything else matches literally — registers the leaf for every
// method in methodKeys with instance.BodyFormat, wires
// instance.SecurityChecks onto it, and dispatches through
// instance.Dispatch.
func RegisterZodRoutes[P any, Q any, B any](parent *router.Node, instance Route[P, Q, B], methodKeys ...string) *router.Node {
	if len(methodKeys) == 0 {
		methodKeys = []string{instance.Method}
	}

	node := parent
	for _, segment := range pathSegments(instance.Path) {
		node = node.Route(segmentMatcher(segment))
	}

	handler := func(s *state.RequestState) error {
		var body B
		if instance.BodyFormat == state.BodyJSON {
			if buf := s.DataBuffer(); len(buf) > 0 {
				if err := json.Unmarshal(buf, &body); err != nil {
					return senderror.BadRequest("malformed JSON body: " + err.Error())
				}
			}
		}
		return instance.Dispatch(s, body)
	}

	for i, method := range methodKeys {
		if i == 0 {
			node.Handle(method, instance.BodyFormat, handler)
		} else {
			node.Handle(method, instance.BodyFormat)
		}
	}

	if len(instance.SecurityChecks) > 0 {
		node.Secure(instance.SecurityChecks...)
	}

	return node
}

// pathSegments splits a "/"-delimited route path into its non-empty
// segments, each still carrying its leading "/" since router.Literal
// matchers consume a full segment including the slash.
func pathSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		segments = append(segments, "/"+p)
	}
	return segments
}

// segmentMatcher builds the router.PathMatcher for one path segment: a
// "/:name" segment becomes a named single-segment capture, anything
// else matches literally.
func segmentMatcher(segment string) *router.PathMatcher {
	name, isParam := strings.CutPrefix(segment, "/:")
	if !isParam {
		return router.Literal(segment)
	}
	return router.MustRegex(`^/(?P<` + name + `>[^/]+)`)
}
