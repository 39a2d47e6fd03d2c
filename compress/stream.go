package compress

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"
)

// encoder is the minimal surface every codec exposes: Write forwards
// (encoded) bytes downstream, Flush pushes any buffered output without
// ending the stream, and Close finalises the codec's trailer.
type encoder interface {
	io.WriteCloser
	Flush() error
}

// Stream wraps an underlying io.Writer (typically the socket) in the
// negotiated content-coding. It supports Split, which flushes and closes
// the current codec instance then transparently opens a fresh one over
// the same underlying writer — used by endpoints that emit multiple
// independently-decodable segments in one response (spec.md §4.4).
type Stream struct {
	dst      io.Writer
	encoding Encoding
	enc      encoder
}

// NewStream wraps dst in encoding. Identity returns a Stream that writes
// straight through with no buffering.
func NewStream(dst io.Writer, encoding Encoding) (*Stream, error) {
	s := &Stream{dst: dst, encoding: encoding}
	enc, err := newEncoder(dst, encoding)
	if err != nil {
		return nil, err
	}
	s.enc = enc
	return s, nil
}

func newEncoder(dst io.Writer, encoding Encoding) (encoder, error) {
	switch encoding {
	case Identity, "":
		return identityEncoder{dst}, nil
	case Gzip:
		return gzip.NewWriterLevel(dst, gzip.DefaultCompression)
	case Deflate:
		return flate.NewWriter(dst, flate.DefaultCompression)
	case Brotli:
		return brotliEncoder{brotli.NewWriter(dst)}, nil
	default:
		return nil, fmt.Errorf("compress: unsupported encoding %q", encoding)
	}
}

// Encoding reports the negotiated content-coding (for setting the
// Content-Encoding response header).
func (s *Stream) Encoding() Encoding { return s.encoding }

// Write encodes and writes p.
func (s *Stream) Write(p []byte) (int, error) {
	return s.enc.Write(p)
}

// Flush pushes any buffered, not-yet-written output through to dst
// without ending the codec (used before headers are finalised, per
// spec.md §4.3 "compression pre-flush runs before headers are finalised").
func (s *Stream) Flush() error {
	return s.enc.Flush()
}

// Close finalises the current codec's trailer.
func (s *Stream) Close() error {
	return s.enc.Close()
}

// Split flushes and closes the current codec instance, then opens a new
// one of the same encoding over the same underlying writer. The client
// sees back-to-back independently-decodable encoded segments — this is
// what lets a chunked export/log endpoint start a fresh gzip member
// mid-response without ending the HTTP response itself.
func (s *Stream) Split() error {
	if err := s.enc.Close(); err != nil {
		return err
	}
	enc, err := newEncoder(s.dst, s.encoding)
	if err != nil {
		return err
	}
	s.enc = enc
	return nil
}

type identityEncoder struct {
	io.Writer
}

func (identityEncoder) Flush() error { return nil }
func (identityEncoder) Close() error { return nil }

// brotliEncoder adapts *brotli.Writer (whose Flush method has no error
// return prior to some versions) to the encoder interface uniformly.
type brotliEncoder struct {
	w *brotli.Writer
}

func (b brotliEncoder) Write(p []byte) (int, error) { return b.w.Write(p) }
func (b brotliEncoder) Flush() error                { return b.w.Flush() }
func (b brotliEncoder) Close() error                 { return b.w.Close() }

// AcquireBuffer and ReleaseBuffer expose the pooled byte buffers used to
// stage compressed output before it is written to the socket — the
// compression layer's equivalent of the teacher's pooled JSON buffers
// (pool/buffers), grounded on the same bytebufferpool dependency.
func AcquireBuffer() *bytebufferpool.ByteBuffer { return bufferPool.Get() }

func ReleaseBuffer(buf *bytebufferpool.ByteBuffer) { bufferPool.Put(buf) }

var bufferPool bytebufferpool.Pool
