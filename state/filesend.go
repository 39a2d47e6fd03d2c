package state

import (
	"io"

	"github.com/wikihost/engine/filesend"
)

// SendFile serves a static file using the File Sender component
// (package filesend), honoring conditional GET, byte ranges, directory
// index resolution, and a custom 404 hook (spec.md §4.6).
func (s *RequestState) SendFile(opts filesend.Options) error {
	return filesend.Send(fileTarget{s}, opts)
}

// fileTarget adapts *RequestState to filesend.Target without filesend
// importing package state.
type fileTarget struct{ s *RequestState }

func (t fileTarget) Method() string              { return t.s.Method() }
func (t fileTarget) Header(name string) string   { return t.s.Header(name) }
func (t fileTarget) SetHeader(name, value string) { t.s.SetHeader(name, value) }
func (t fileTarget) SendStream(status int, src io.Reader) error {
	return t.s.SendStream(status, src)
}
func (t fileTarget) SendEmpty(status int) error { return t.s.SendEmpty(status) }
