package router

// routeMatch is this package's realization of spec.md §3's RouteMatch:
// the winning node plus the path captures merged across the whole
// root-to-leaf chain (innermost wins on name collision) and the
// security checks accumulated along that chain, in registration order.
type routeMatch struct {
	node      *Node
	captures  map[string]string
	security  []string
	routePath string
}

// match walks the route tree depth-first for method and path, applying
// spec.md §4.5 step 3's tie-break rule via sortedChildren at every
// level: a node terminates a match only if it isn't denyFinal and
// allows method, checked once the whole path has been consumed.
func (r *Router) match(method, path string) *routeMatch {
	return tryNode(r.root, path, method, nil, nil)
}

func tryNode(node *Node, remaining, method string, captures map[string]string, security []string) *routeMatch {
	if remaining == "" || remaining == "/" {
		if !node.denyFinal && node.allowsMethod(method) && len(node.handlers) > 0 {
			return &routeMatch{
				node:      node,
				captures:  captures,
				security:  security,
				routePath: routePathOf(node),
			}
		}
	}

	for _, child := range sortedChildren(node.children) {
		ok, consumed, caps := child.matcher.match(remaining)
		if !ok {
			continue
		}
		merged := mergeCaptures(captures, caps)
		childSecurity := security
		if len(child.security) > 0 {
			childSecurity = append(append([]string{}, security...), child.security...)
		}
		if result := tryNode(child, remaining[consumed:], method, merged, childSecurity); result != nil {
			return result
		}
	}

	return nil
}

// mergeCaptures overlays child captures on top of parent's, so a
// repeated path-parameter name resolves to the innermost (most
// deeply-nested) route's value, per spec.md §3's invariant.
func mergeCaptures(parent, child map[string]string) map[string]string {
	if len(child) == 0 {
		return parent
	}
	merged := make(map[string]string, len(parent)+len(child))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}

func routePathOf(n *Node) string {
	if n.routeLabel == "" {
		return "/"
	}
	return n.routeLabel
}
