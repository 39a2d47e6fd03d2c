// Package filesend implements static file serving: conditional GET
// (If-Modified-Since / If-None-Match), byte-range requests, directory
// listing/index-file resolution, and configurable 404 handling — the
// pieces spec.md §4.6 groups under "the File Sender".
//
// It depends only on the small Target interface below, never on
// package state directly, so state can depend on filesend without
// forming an import cycle.
package filesend

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Target is the minimal response surface filesend needs from a
// RequestState: header read/write, and the two senders it drives
// (SendStream for a body, SendEmpty for a bodiless status).
type Target interface {
	Method() string
	Header(name string) string
	SetHeader(name, value string)
	SendStream(status int, src io.Reader) error
	SendEmpty(status int) error
}

// Options configures one SendFile call (spec.md §4.6).
type Options struct {
	// FS is the filesystem root files are served from (an os.DirFS or
	// embed.FS, typically).
	FS fs.FS
	// Path is the FS-relative path to serve, already cleaned of ".."
	// segments by the caller's router.
	Path string
	// IndexNames lists filenames tried, in order, when Path resolves to
	// a directory (e.g. "index.html"). A directory with none present
	// is handed to Directory (or answered with a 404 carrying X-Reason).
	IndexNames []string
	// NotFound, if set, is invoked instead of the default 404 body when
	// the target file doesn't exist.
	NotFound func(t Target) error
	// Directory, if set, is invoked instead of the default "directory
	// listing not allowed" 404 when Path resolves to a directory with no
	// matching IndexNames entry.
	Directory func(t Target) error
	// Immutable marks the response as permanently cacheable
	// (Cache-Control: public, max-age=31536000, immutable) — for
	// content-addressed assets.
	Immutable bool
	// MaxAge sets Cache-Control: public, max-age=<seconds> when non-zero
	// and Immutable is false.
	MaxAge int
}

// errIsDirectory is returned internally when Path names a directory
// with no matching IndexNames entry; callers never see it (SendFile
// resolves it into Options.Directory or a 404 with x-reason).
var errIsDirectory = errors.New("filesend: path is a directory")

// errForbidden is returned internally for path-traversal attempts and
// dotfile access; callers never see it (SendFile maps it to a plain
// 404, mirroring spec.md §4.8's "resolves path safely ... refuses
// dotfiles").
var errForbidden = errors.New("filesend: forbidden path")

// Send resolves opts.Path against opts.FS, honoring conditional GET and
// Range headers, and writes the result (or a 404) to t.
func Send(t Target, opts Options) error {
	name, file, info, err := resolve(opts)
	if errors.Is(err, errIsDirectory) {
		if opts.Directory != nil {
			return opts.Directory(t)
		}
		t.SetHeader("X-Reason", "Directory listing not allowed")
		return t.SendEmpty(404)
	}
	if err != nil {
		if opts.NotFound != nil {
			return opts.NotFound(t)
		}
		return t.SendEmpty(404)
	}
	defer file.Close()

	etag := computeETag(info)
	t.SetHeader("ETag", etag)
	t.SetHeader("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	t.SetHeader("Accept-Ranges", "bytes")

	switch {
	case opts.Immutable:
		t.SetHeader("Cache-Control", "public, max-age=31536000, immutable")
	case opts.MaxAge > 0:
		t.SetHeader("Cache-Control", fmt.Sprintf("public, max-age=%d", opts.MaxAge))
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		t.SetHeader("Content-Type", ct)
	} else {
		t.SetHeader("Content-Type", "application/octet-stream")
	}

	if isNotModified(t, etag, info.ModTime()) {
		return t.SendEmpty(304)
	}

	size := info.Size()
	rangeHeader := t.Header("range")
	if rangeHeader == "" || strings.Contains(rangeHeader, ",") {
		t.SetHeader("Content-Length", strconv.FormatInt(size, 10))
		return t.SendStream(200, file)
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		t.SetHeader("Content-Range", fmt.Sprintf("bytes */%d", size))
		return t.SendEmpty(416)
	}

	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return t.SendEmpty(500)
		}
	}

	length := end - start + 1
	t.SetHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	t.SetHeader("Content-Length", strconv.FormatInt(length, 10))
	return t.SendStream(206, io.LimitReader(file, length))
}

func resolve(opts Options) (string, fs.File, fs.FileInfo, error) {
	clean := path.Clean("/" + opts.Path)[1:]
	if clean == "" {
		clean = "."
	}
	if isForbidden(clean) {
		return "", nil, nil, errForbidden
	}

	file, err := opts.FS.Open(clean)
	if err != nil {
		return "", nil, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return "", nil, nil, err
	}

	if !info.IsDir() {
		return clean, file, info, nil
	}
	file.Close()

	for _, index := range opts.IndexNames {
		candidate := path.Join(clean, index)
		f, err := opts.FS.Open(candidate)
		if err != nil {
			continue
		}
		fi, err := f.Stat()
		if err != nil || fi.IsDir() {
			f.Close()
			continue
		}
		return candidate, f, fi, nil
	}
	return "", nil, nil, errIsDirectory
}

// isForbidden reports whether any path segment is "." (already handled
// by path.Clean), ".." (a traversal attempt path.Clean also already
// normalised away, checked again defensively), or begins with "."
// (spec.md §4.8's dotfile refusal).
func isForbidden(clean string) bool {
	if clean == "." {
		return false
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return true
		}
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

func computeETag(info fs.FileInfo) string {
	return fmt.Sprintf(`"%x-%x"`, info.ModTime().Unix(), info.Size())
}

func isNotModified(t Target, etag string, modTime time.Time) bool {
	if inm := t.Header("if-none-match"); inm != "" {
		return inm == etag
	}
	if ims := t.Header("if-modified-since"); ims != "" {
		if tm, err := http.ParseTime(ims); err == nil {
			return !modTime.Truncate(time.Second).After(tm)
		}
	}
	return false
}

// parseRange parses a single-range "bytes=start-end" header (multi-range
// requests are out of scope per spec.md §4.6 Non-goals; the response
// falls back to a full 200 body if more than one range is requested).
func parseRange(header string, size int64) (start, end int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	switch {
	case parts[0] == "" && parts[1] != "":
		// suffix range: last N bytes
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	case parts[0] != "":
		s, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || s < 0 || s >= size {
			return 0, 0, false
		}
		if parts[1] == "" {
			return s, size - 1, true
		}
		e, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || e < s {
			return 0, 0, false
		}
		if e >= size {
			e = size - 1
		}
		return s, e, true
	default:
		return 0, 0, false
	}
}
