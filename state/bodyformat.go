package state

// BodyFormat tags how a matched route wants its request body prepared
// before the handler runs (spec.md §3). The Router reads this off the
// winning route and drives body preparation accordingly (spec.md §4.5
// step 4); RequestState only stores the result.
type BodyFormat string

const (
	// BodyIgnore leaves the body entirely unread.
	BodyIgnore BodyFormat = "ignore"
	// BodyStream leaves the raw reader for the handler to consume itself.
	BodyStream BodyFormat = "stream"
	// BodyBuffer reads the full body into DataBuffer as raw bytes.
	BodyBuffer BodyFormat = "buffer"
	// BodyString decodes DataBuffer as a UTF-8 string.
	BodyString BodyFormat = "string"
	// BodyJSON parses the body as JSON into Data.
	BodyJSON BodyFormat = "json"
	// BodyFormURLEncoded parses the body as application/x-www-form-urlencoded
	// into a map[string][]string stored in Data.
	BodyFormURLEncoded BodyFormat = "www-form-urlencoded"
	// BodyFormURLEncodedURLSearchParams is BodyFormURLEncoded, but Data
	// is stored as a *url.Values (the Go analogue of URLSearchParams)
	// instead of a plain map — for handlers that want ordered iteration
	// or repeated-key semantics.
	BodyFormURLEncodedURLSearchParams BodyFormat = "www-form-urlencoded-urlsearchparams"
	// BodyMultipart leaves multipart parsing to ReadMultipartData.
	BodyMultipart BodyFormat = "multipart"
)
