package filesend

import (
	"bytes"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"
)

type fakeTarget struct {
	headers map[string]string
	status  int
	body    bytes.Buffer
	method  string
}

func newFakeTarget(method string) *fakeTarget {
	return &fakeTarget{headers: map[string]string{}, method: method}
}

func (t *fakeTarget) Method() string            { return t.method }
func (t *fakeTarget) Header(name string) string { return t.headers[name] }
func (t *fakeTarget) SetHeader(name, value string) {
	t.headers[name] = value
}
func (t *fakeTarget) SendStream(status int, src io.Reader) error {
	t.status = status
	io.Copy(&t.body, src)
	return nil
}
func (t *fakeTarget) SendEmpty(status int) error {
	t.status = status
	return nil
}

func testFS() fs.FS {
	return fstest.MapFS{
		"index.html":    {Data: []byte("<html>home</html>")},
		"docs/page.txt": {Data: []byte("0123456789")},
	}
}

func TestSendFullFile(t *testing.T) {
	target := newFakeTarget("GET")
	err := Send(target, Options{FS: testFS(), Path: "docs/page.txt"})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if target.status != 200 {
		t.Fatalf("status = %d, want 200", target.status)
	}
	if target.body.String() != "0123456789" {
		t.Fatalf("body = %q, want 0123456789", target.body.String())
	}
	if target.headers["Content-Length"] != "10" {
		t.Fatalf("Content-Length = %q, want 10", target.headers["Content-Length"])
	}
}

func TestSendRangeRequest(t *testing.T) {
	target := newFakeTarget("GET")
	target.headers["range"] = "bytes=2-5"

	err := Send(target, Options{FS: testFS(), Path: "docs/page.txt"})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if target.status != 206 {
		t.Fatalf("status = %d, want 206", target.status)
	}
	if target.body.String() != "2345" {
		t.Fatalf("body = %q, want 2345", target.body.String())
	}
	if target.headers["Content-Range"] != "bytes 2-5/10" {
		t.Fatalf("Content-Range = %q, want bytes 2-5/10", target.headers["Content-Range"])
	}
}

func TestSendSuffixRange(t *testing.T) {
	target := newFakeTarget("GET")
	target.headers["range"] = "bytes=-3"

	if err := Send(target, Options{FS: testFS(), Path: "docs/page.txt"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if target.body.String() != "789" {
		t.Fatalf("body = %q, want 789", target.body.String())
	}
}

func TestSendUnsatisfiableRange(t *testing.T) {
	target := newFakeTarget("GET")
	target.headers["range"] = "bytes=100-200"

	if err := Send(target, Options{FS: testFS(), Path: "docs/page.txt"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if target.status != 416 {
		t.Fatalf("status = %d, want 416", target.status)
	}
}

func TestSendDirectoryResolvesIndex(t *testing.T) {
	target := newFakeTarget("GET")
	err := Send(target, Options{FS: testFS(), Path: ".", IndexNames: []string{"index.html"}})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if target.body.String() != "<html>home</html>" {
		t.Fatalf("body = %q, want index contents", target.body.String())
	}
}

func TestSendMissingFileUsesNotFoundHook(t *testing.T) {
	target := newFakeTarget("GET")
	called := false
	err := Send(target, Options{
		FS:   testFS(),
		Path: "missing.txt",
		NotFound: func(Target) error {
			called = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if !called {
		t.Fatal("NotFound hook was not invoked for a missing file")
	}
}

func TestSendRejectsDotfileTraversal(t *testing.T) {
	target := newFakeTarget("GET")
	called := false
	err := Send(target, Options{
		FS:   testFS(),
		Path: "../docs/.secret",
		NotFound: func(Target) error {
			called = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if !called {
		t.Fatal("NotFound hook was not invoked for a dotfile/traversal path")
	}
}

func TestSendDirectoryWithoutIndexUsesDirectoryHookOrXReason(t *testing.T) {
	target := newFakeTarget("GET")
	if err := Send(target, Options{FS: testFS(), Path: "docs"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if target.status != 404 {
		t.Fatalf("status = %d, want 404", target.status)
	}
	if target.headers["X-Reason"] != "Directory listing not allowed" {
		t.Fatalf("X-Reason = %q, want directory-listing message", target.headers["X-Reason"])
	}
}

func TestSendNotModifiedByETag(t *testing.T) {
	target := newFakeTarget("GET")
	if err := Send(target, Options{FS: testFS(), Path: "docs/page.txt"}); err != nil {
		t.Fatalf("first Send returned error: %v", err)
	}
	etag := target.headers["ETag"]

	target2 := newFakeTarget("GET")
	target2.headers["if-none-match"] = etag
	if err := Send(target2, Options{FS: testFS(), Path: "docs/page.txt"}); err != nil {
		t.Fatalf("second Send returned error: %v", err)
	}
	if target2.status != 304 {
		t.Fatalf("status = %d, want 304", target2.status)
	}
}
