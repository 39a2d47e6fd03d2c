package validate

import (
	"testing"

	"github.com/wikihost/engine/state"
)

func TestRouteDispatchRunsInnerWithDecodedParams(t *testing.T) {
	route := Route[pageParams, struct{}, struct{}]{
		Method: "GET",
		Path:   "/wiki/:slug",
		Inner: func(s *state.RequestState, path pageParams, query struct{}, body struct{}) (any, error) {
			return map[string]string{"slug": path.Slug}, nil
		},
	}

	req := newFakeRequestForRoute("GET", "/wiki/Home")
	res := newFakeResponseWriterForRoute()
	s := state.New(state.Options{Request: req, Response: res})
	s.SetPathParams(map[string]string{"slug": "Home"})

	err := route.Dispatch(s, struct{}{})
	if err != state.ErrStreamEnded {
		t.Fatalf("Dispatch = %v, want ErrStreamEnded", err)
	}
	if res.status != 200 {
		t.Fatalf("status = %d, want 200", res.status)
	}
}

func TestRouteDispatchRejectsInvalidPath(t *testing.T) {
	route := Route[pageParams, struct{}, struct{}]{
		Inner: func(s *state.RequestState, path pageParams, query struct{}, body struct{}) (any, error) {
			t.Fatal("Inner should not run when path validation fails")
			return nil, nil
		},
	}

	req := newFakeRequestForRoute("GET", "/wiki/")
	res := newFakeResponseWriterForRoute()
	s := state.New(state.Options{Request: req, Response: res})
	s.SetPathParams(map[string]string{})

	if err := route.Dispatch(s, struct{}{}); err == nil {
		t.Fatal("Dispatch did not fail on a missing required path param")
	}
}
