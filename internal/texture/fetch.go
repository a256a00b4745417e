package texture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxImageBytes bounds a single download.
var maxImageBytes = 256 << 20

// Fetcher resolves a URI to a decoded image.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (image.Image, error)
}

// URIFetcher fetches http(s) URIs over the network and file URIs or bare
// paths from disk. Relative paths resolve against Base.
type URIFetcher struct {
	Base   string
	Client *http.Client
}

// NewFetcher returns a URIFetcher rooted at base using http.DefaultClient.
func NewFetcher(base string) *URIFetcher {
	return &URIFetcher{Base: base, Client: http.DefaultClient}
}

func (f *URIFetcher) Fetch(ctx context.Context, uri string) (image.Image, error) {
	data, err := f.read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// read treats uri as a URL only when it carries a "scheme://" prefix.
// Anything else is a filesystem path, so names containing '%' or ':' and
// Windows drive paths are never mistaken for URLs.
func (f *URIFetcher) read(ctx context.Context, uri string) ([]byte, error) {
	scheme, ok := urlScheme(uri)
	if !ok {
		p := uri
		if !filepath.IsAbs(p) {
			p = filepath.Join(f.Base, p)
		}
		return readFile(ctx, p)
	}

	switch scheme {
	case "http", "https":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to parse uri: %w", err)
		}
		return f.get(ctx, u.String())
	case "file":
		return readFile(ctx, fileURLPath(uri))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// urlScheme returns the lower-cased scheme of a "scheme://..." string.
func urlScheme(uri string) (string, bool) {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return "", false
	}
	scheme := uri[:i]
	for j, c := range scheme {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return strings.ToLower(scheme), true
}

// fileURLPath converts a file:// URL to a native path. An empty or
// "localhost" host is dropped, and "/C:/x" becomes "C:/x" before the
// separators are converted.
func fileURLPath(uri string) string {
	rest := uri[len("file://"):]
	if strings.HasPrefix(rest, "localhost/") {
		rest = rest[len("localhost"):]
	}
	if p, err := url.PathUnescape(rest); err == nil {
		rest = p
	}
	if len(rest) >= 3 && rest[0] == '/' && rest[2] == ':' && isLetter(rest[1]) {
		rest = rest[1:]
	}
	return filepath.FromSlash(rest)
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (f *URIFetcher) get(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxImageBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxImageBytes)
	}
	return data, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Decode sniffs data and decodes it with the matching registered decoder.
func Decode(data []byte) (image.Image, error) {
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return nil, ErrNotImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind.MIME.Value, err)
	}
	return img, nil
}
