package validate

import (
	"bytes"
	"context"
	"testing"

	"github.com/wikihost/engine/router"
	"github.com/wikihost/engine/security"
	"github.com/wikihost/engine/state"
)

func TestRegisterZodRoutesInstallsOntoRouteTree(t *testing.T) {
	rtr := router.New(router.Options{})
	route := Route[pageParams, struct{}, struct{}]{
		Method: "GET",
		Path:   "/wiki/:slug",
		Inner: func(s *state.RequestState, path pageParams, query struct{}, body struct{}) (any, error) {
			return map[string]string{"slug": path.Slug}, nil
		},
	}
	RegisterZodRoutes(rtr.Root(), route)

	req := newFakeRequestForRoute("GET", "/wiki/Home")
	res := newFakeResponseWriterForRoute()

	if err := rtr.Handle(context.Background(), req, res); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.status != 200 {
		t.Fatalf("status = %d, want 200", res.status)
	}
	if !bytes.Contains(res.body.Bytes(), []byte("Home")) {
		t.Fatalf("body = %q, want it to contain the decoded slug", res.body.String())
	}
}

func TestRegisterZodRoutesWiresSecurityChecks(t *testing.T) {
	reg := security.NewRegistry()
	reg.Register("requestedWith", security.RequestedWithHeader("XMLHttpRequest"))

	rtr := router.New(router.Options{Security: reg})
	route := Route[struct{}, struct{}, struct{}]{
		Method:         "GET",
		Path:           "/admin",
		SecurityChecks: []string{"requestedWith"},
		Inner: func(s *state.RequestState, path struct{}, query struct{}, body struct{}) (any, error) {
			t.Fatal("Inner should not run when the security check rejects the request")
			return nil, nil
		},
	}
	RegisterZodRoutes(rtr.Root(), route)

	req := newFakeRequestForRoute("GET", "/admin")
	res := newFakeResponseWriterForRoute()

	if err := rtr.Handle(context.Background(), req, res); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.status != 403 {
		t.Fatalf("status = %d, want 403 from the unmet security check", res.status)
	}
}

func TestRegisterZodRoutesAcceptsMultipleMethods(t *testing.T) {
	rtr := router.New(router.Options{})
	calls := 0
	route := Route[struct{}, struct{}, struct{}]{
		Path: "/wiki",
		Inner: func(s *state.RequestState, path struct{}, query struct{}, body struct{}) (any, error) {
			calls++
			return map[string]string{"ok": "yes"}, nil
		},
	}
	RegisterZodRoutes(rtr.Root(), route, "GET", "POST")

	for _, method := range []string{"GET", "POST"} {
		req := newFakeRequestForRoute(method, "/wiki")
		res := newFakeResponseWriterForRoute()
		if err := rtr.Handle(context.Background(), req, res); err != nil {
			t.Fatalf("Handle(%s): %v", method, err)
		}
		if res.status != 200 {
			t.Fatalf("%s status = %d, want 200", method, res.status)
		}
	}
	if calls != 2 {
		t.Fatalf("Inner called %d times, want exactly 2 (once per method, not duplicated)", calls)
	}
}
