package validate

import (
	"reflect"

	"github.com/wikihost/engine/state"
)

// Route is the Go realization of spec.md §4.6's zodRoute: a
// compile-time-typed route descriptor whose Inner receives path/query
// params already decoded and validated into P and Q, and (for JSON
// bodies) a decoded, validated body B. Other body formats are not
// decoded into B; it stays its zero value.
//
// P, Q, and B are plain structs tagged with `path:"..."`/`query:"..."`
// (decoding) and validator tags (`validate:"..."`, constraint rules).
// Use struct{} for any of the three a route doesn't need.
type Route[P any, Q any, B any] struct {
	Method         string
	Path           string
	BodyFormat     state.BodyFormat
	SecurityChecks []string
	Inner          func(s *state.RequestState, path P, query Q, body B) (any, error)
}

// Dispatch runs the full validate-then-handle-then-serialize pipeline
// spec.md §4.6 describes for zodRoute: decode+validate pathParams into
// P, decode+validate queryParams into Q, take the already-decoded body
// (per r.BodyFormat) as B and validate it when B is a struct, invoke
// Inner, and JSON-serialize whatever it
// returns via s.SendJSON. A validation failure never reaches Inner — it
// is rendered as a BAD_REQUEST SendError immediately.
func (r Route[P, Q, B]) Dispatch(s *state.RequestState, body B) error {
	var path P
	if err := CheckPath(s.PathParams(), &path); err != nil {
		return err
	}

	var query Q
	if err := CheckQuery(s.QueryParams(), &query); err != nil {
		return err
	}

	if bt := reflect.TypeOf(body); bt != nil && bt.Kind() == reflect.Struct {
		if err := validateStruct(&body); err != nil {
			return err
		}
	}

	result, err := r.Inner(s, path, query, body)
	if err != nil {
		return err
	}
	return s.SendJSON(200, result)
}
