package statsfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxDocumentBytes bounds a single statistics document.
const maxDocumentBytes = 64 << 20

// ErrNotFound is returned when a source has no document of that name.
var ErrNotFound = errors.New("statistics document not found")

// Source fetches raw statistics documents by file name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Describe() string
}

// DirSource reads documents from a local directory, the layout the
// statistics job writes its output to.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: strings.TrimSpace(dir)}
}

func (s *DirSource) Describe() string {
	return "dir:" + s.dir
}

func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxDocumentBytes))
}

// HTTPSource fetches documents relative to a base URL, the way the report
// pages load them from the web server next to them.
type HTTPSource struct {
	base string
	http *http.Client
}

func NewHTTPSource(base string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		base: strings.TrimRight(strings.TrimSpace(base), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Enabled() bool {
	return s != nil && s.base != ""
}

func (s *HTTPSource) Describe() string {
	return "url:" + s.base
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if !s.Enabled() {
		return nil, errors.New("http source has no base url")
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(s.base + "/" + url.PathEscape(clean))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("statistics source status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(blob)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}

// cleanName keeps documents inside the source root.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != name || strings.Contains(clean, "/") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return clean, nil
}
