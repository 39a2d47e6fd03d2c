package state

import (
	"strings"

	"github.com/wikihost/engine/transport"
)

// lowercaseHeaders copies h into a new map with lowercased keys, so
// handler code never has to guess canonicalisation (spec.md §3: "headers
// exposed to handlers are always lowercase").
func lowercaseHeaders(h transport.Header) transport.Header {
	out := make(transport.Header, len(h))
	for k, v := range h {
		out[lowercaseKey(k)] = v
	}
	return out
}

func lowercaseKey(k string) string {
	return strings.ToLower(k)
}

// parseCookies parses a raw Cookie header value into a multi-map. Unlike
// net/http's cookie jar this keeps every value for a repeated name
// instead of silently keeping only the first, matching spec.md §3's
// "cookies are exposed as a multi-map" requirement.
func parseCookies(header string) map[string][]string {
	out := make(map[string][]string)
	if header == "" {
		return out
	}
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if unquoted, err := unquoteCookieValue(value); err == nil {
			value = unquoted
		}
		out[name] = append(out[name], value)
	}
	return out
}

// unquoteCookieValue strips a single layer of RFC 6265 DQUOTE wrapping,
// if present; cookie values are otherwise opaque octets to this layer.
func unquoteCookieValue(v string) (string, error) {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1], nil
	}
	return v, nil
}

// CookieOptions configures an outgoing Set-Cookie header (spec.md §4.3).
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   int // seconds; 0 means omitted, negative deletes immediately
	Secure   bool
	HTTPOnly bool
	SameSite string // "Strict", "Lax", "None", or "" to omit
}

// SetCookie queues an outgoing Set-Cookie header. Like every header
// mutation, this only has an effect before the first send call
// (spec.md §4.3).
func (s *RequestState) SetCookie(name, value string, opts CookieOptions) {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	if opts.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(opts.Path)
	}
	if opts.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(opts.Domain)
	}
	if opts.MaxAge != 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(itoa(opts.MaxAge))
	}
	if opts.Secure {
		b.WriteString("; Secure")
	}
	if opts.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if opts.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(opts.SameSite)
	}
	s.res.Header().Add("Set-Cookie", b.String())
}

// SetHeader queues a single-valued outgoing response header.
func (s *RequestState) SetHeader(name, value string) {
	s.res.Header().Set(name, value)
}

// AddHeader appends an outgoing response header value.
func (s *RequestState) AddHeader(name, value string) {
	s.res.Header().Add(name, value)
}
