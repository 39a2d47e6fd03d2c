// Package compress implements the engine's content-encoding negotiation
// and the encoders that back it (spec.md §4.4). It negotiates between a
// client's Accept-Encoding header and a per-call whitelist, wraps the
// outgoing byte stream in the chosen encoder, and supports splitting a
// single response into multiple independently-flushed encoded segments
// (used by chunked export/log endpoints).
package compress

import (
	"sort"
	"strconv"
	"strings"
)

// Encoding identifies a supported content-coding.
type Encoding string

const (
	Identity Encoding = "identity"
	Gzip     Encoding = "gzip"
	Deflate  Encoding = "deflate"
	Brotli   Encoding = "br"
)

// DefaultPreference is the server-preferred order used to break ties
// between encodings the client accepts equally. Brotli first (best
// ratio for text-heavy wiki pages), then gzip (widest support), then
// deflate, with identity always last.
var DefaultPreference = []Encoding{Brotli, Gzip, Deflate}

type qEncoding struct {
	encoding Encoding
	q        float64
}

// Negotiate parses an Accept-Encoding header value, drops zero-quality
// entries, intersects what remains with whitelist (in practice the set
// of encodings the calling route actually supports), and returns the
// server's most-preferred surviving encoding. If nothing survives —
// including when the client explicitly sends "identity;q=0" with no
// other acceptable encoding — Negotiate falls back to Identity, never a
// q=0 encoding (spec.md §8 invariant 6).
func Negotiate(acceptEncoding string, whitelist []Encoding) Encoding {
	if len(whitelist) == 0 {
		return Identity
	}

	parsed := parseAcceptEncoding(acceptEncoding)

	allowed := make(map[Encoding]bool, len(whitelist))
	for _, e := range whitelist {
		allowed[e] = true
	}

	// Identity is always implicitly acceptable unless the client sent an
	// explicit "identity;q=0" with no wildcard override.
	identityQ := 1.0
	wildcardQ := -1.0
	candidates := make(map[Encoding]float64, len(parsed))
	for _, pe := range parsed {
		switch pe.encoding {
		case Identity:
			identityQ = pe.q
		case "*":
			wildcardQ = pe.q
		default:
			candidates[pe.encoding] = pe.q
		}
	}

	var best Encoding
	bestQ := -1.0
	for _, pref := range DefaultPreference {
		if !allowed[pref] {
			continue
		}
		q, explicit := candidates[pref]
		if !explicit {
			if wildcardQ < 0 {
				continue
			}
			q = wildcardQ
		}
		if q <= 0 {
			continue
		}
		if q > bestQ {
			best = pref
			bestQ = q
		}
	}

	if best != "" {
		return best
	}
	if identityQ > 0 {
		return Identity
	}
	return Identity
}

func parseAcceptEncoding(header string) []qEncoding {
	if header == "" {
		return nil
	}

	parts := strings.Split(header, ",")
	out := make([]qEncoding, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name := part
		q := 1.0
		if idx := strings.Index(part, ";"); idx >= 0 {
			name = strings.TrimSpace(part[:idx])
			params := part[idx+1:]
			for _, p := range strings.Split(params, ";") {
				p = strings.TrimSpace(p)
				if strings.HasPrefix(p, "q=") {
					if v, err := strconv.ParseFloat(strings.TrimPrefix(p, "q="), 64); err == nil {
						q = v
					}
				}
			}
		}

		out = append(out, qEncoding{encoding: Encoding(strings.ToLower(name)), q: q})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].q > out[j].q })
	return out
}
