package security

import "github.com/wikihost/engine/senderror"

// RequestedWithHeader returns the check spec.md §4.5 requires:
// X-Requested-With must equal one of tokens (a CSRF defence — browsers
// won't let cross-origin form submissions set custom headers, so its
// presence proves the request came from same-origin script).
func RequestedWithHeader(tokens ...string) Check {
	allowed := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		allowed[t] = true
	}
	return func(t Target) error {
		got := t.Header("x-requested-with")
		if !allowed[got] {
			return senderror.New(senderror.ReasonForbidden, 403)
		}
		return nil
	}
}
