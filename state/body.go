package state

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/wikihost/engine/senderror"
)

const defaultMaxBodyBytes = 100 << 20 // 100 MiB, mirrors spec.md §4.5's default body cap

// ReadBuffer reads the entire request body into memory, honoring the
// route's configured size limit. It is idempotent: a second call
// returns the buffer read by the first.
func (s *RequestState) ReadBuffer(ctx context.Context, maxBytes int64) ([]byte, error) {
	if s.dataBuffer != nil {
		return s.dataBuffer, nil
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}

	body := s.req.Body()
	if body == nil {
		s.dataBuffer = []byte{}
		return s.dataBuffer, nil
	}
	defer body.Close()

	limited := io.LimitReader(body, maxBytes+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		return nil, senderror.Internal(err.Error())
	}
	if int64(len(buf)) > maxBytes {
		return nil, senderror.New(senderror.ReasonRequestTooLarge, 413).WithDetails("request body exceeds the route's configured limit")
	}

	s.dataBuffer = buf

	switch s.bodyFormat {
	case BodyString:
		s.data = string(buf)
	case BodyJSON:
		var v any
		if len(buf) > 0 {
			if err := json.Unmarshal(buf, &v); err != nil {
				return nil, senderror.BadRequest("malformed JSON body: " + err.Error())
			}
		}
		s.data = v
	case BodyFormURLEncoded:
		values, err := url.ParseQuery(string(buf))
		if err != nil {
			return nil, senderror.BadRequest("malformed form body: " + err.Error())
		}
		s.data = map[string][]string(values)
	case BodyFormURLEncodedURLSearchParams:
		values, err := url.ParseQuery(string(buf))
		if err != nil {
			return nil, senderror.BadRequest("malformed form body: " + err.Error())
		}
		s.data = &values
	}

	return s.dataBuffer, nil
}

// MultipartPart is one field of a multipart/form-data body, handed to a
// MultipartCallbacks.OnPart callback as its contents stream in.
type MultipartPart struct {
	FieldName string
	FileName  string // "" for a plain form field
	Header    map[string][]string
	Reader    io.Reader
}

// MultipartCallbacks drives streaming multipart ingestion (spec.md §4.3:
// "multipart bodies are never buffered whole"). OnPart is invoked once
// per part, serially — the previous part's Reader is exhausted or
// discarded before the next call — so a single goroutine can safely
// stream each part straight to its destination without synchronisation.
type MultipartCallbacks struct {
	OnPart func(ctx context.Context, part MultipartPart) error
}

// ReadMultipartData streams a multipart/form-data body through cb,
// enforcing that the Content-Type header is multipart/* and carries a
// boundary. It does not check the route's declared body format.
func (s *RequestState) ReadMultipartData(ctx context.Context, cb MultipartCallbacks) error {
	contentType := s.Header("content-type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return senderror.New(senderror.ReasonMultipartInvalidContentType, 400).WithDetails(contentType)
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return senderror.New(senderror.ReasonMultipartMissingBoundary, 400)
	}

	body := s.req.Body()
	if body == nil {
		return senderror.New(senderror.ReasonMultipartMissingBoundary, 400).WithDetails("empty body")
	}
	defer body.Close()

	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return senderror.Internal("multipart: failed reading next part: " + err.Error())
		}

		header := make(map[string][]string, len(part.Header))
		for k, v := range part.Header {
			header[k] = v
		}

		if cb.OnPart != nil {
			if err := cb.OnPart(ctx, MultipartPart{
				FieldName: part.FormName(),
				FileName:  part.FileName(),
				Header:    header,
				Reader:    part,
			}); err != nil {
				part.Close()
				return err
			}
		}
		part.Close()
	}
}
