package validate

import (
	"testing"

	"github.com/wikihost/engine/senderror"
)

type pageParams struct {
	Slug string `path:"slug" validate:"required,min=1"`
}

type searchQuery struct {
	Tags  []string `query:"tag"`
	Limit int      `query:"limit" validate:"gte=0,lte=100"`
}

func TestCheckPathDecodesAndValidates(t *testing.T) {
	var p pageParams
	if err := CheckPath(map[string]string{"slug": "Home"}, &p); err != nil {
		t.Fatalf("CheckPath returned error: %v", err)
	}
	if p.Slug != "Home" {
		t.Fatalf("Slug = %q, want Home", p.Slug)
	}
}

func TestCheckPathRejectsMissingRequired(t *testing.T) {
	var p pageParams
	err := CheckPath(map[string]string{}, &p)
	if err == nil {
		t.Fatal("CheckPath did not fail on a missing required path param")
	}
	se, ok := senderror.AsSendError(err)
	if !ok {
		t.Fatalf("error is not a *SendError: %v", err)
	}
	if se.Status != 400 {
		t.Fatalf("status = %d, want 400", se.Status)
	}
}

func TestCheckQueryDecodesSliceAndScalar(t *testing.T) {
	var q searchQuery
	err := CheckQuery(map[string][]string{
		"tag":   {"go", "wiki"},
		"limit": {"25"},
	}, &q)
	if err != nil {
		t.Fatalf("CheckQuery returned error: %v", err)
	}
	if len(q.Tags) != 2 || q.Tags[0] != "go" || q.Tags[1] != "wiki" {
		t.Fatalf("Tags = %v, want [go wiki]", q.Tags)
	}
	if q.Limit != 25 {
		t.Fatalf("Limit = %d, want 25", q.Limit)
	}
}

func TestCheckQueryRejectsOutOfRange(t *testing.T) {
	var q searchQuery
	err := CheckQuery(map[string][]string{"limit": {"500"}}, &q)
	if err == nil {
		t.Fatal("CheckQuery did not fail on an out-of-range limit")
	}
}
