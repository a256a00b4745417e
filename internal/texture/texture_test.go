package texture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
	"github.com/toxichemicals/GO/holy-textures/internal/gpu/gputest"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}

	sources = []Source{
		{Name: "globe", URI: "globe.png", Placeholder: red},
		{Name: "myimage", URI: "myimage.png", Placeholder: green},
	}
)

// queue is a minimal render-thread stand-in.
type queue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *queue) Post(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

func (q *queue) drain() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, t := range tasks {
		t()
	}
	return len(tasks)
}

type fetchFunc func(ctx context.Context, uri string) (image.Image, error)

func (f fetchFunc) Fetch(ctx context.Context, uri string) (image.Image, error) { return f(ctx, uri) }

func testImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGateFiresOnce(t *testing.T) {
	var fired atomic.Int32
	g := NewGate(5, func() { fired.Add(1) })

	var wg sync.WaitGroup
	var completions atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Advance() {
				completions.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, int32(1), completions.Load())
	assert.Equal(t, 5, g.Count(), "the counter never exceeds the total")
	select {
	case <-g.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestGateFiresOnLastAdvance(t *testing.T) {
	fired := 0
	g := NewGate(2, func() { fired++ })
	assert.False(t, g.Advance())
	assert.Equal(t, 0, fired)
	assert.True(t, g.Advance())
	assert.Equal(t, 1, fired)
	assert.False(t, g.Advance())
	assert.Equal(t, 1, fired)

	empty := NewGate(0, func() { fired++ })
	assert.False(t, empty.Advance())
	assert.Equal(t, 1, fired)
}

func TestPlaceholdersCommittedImmediately(t *testing.T) {
	dev := gputest.New()
	l := NewLoader(dev, sources, Options{})

	require.Len(t, l.Slots(), 2)
	for i, s := range l.Slots() {
		assert.Equal(t, i, s.Unit)
		assert.NotZero(t, s.Handle())
		assert.Equal(t, Pending, s.State())

		tex := dev.Textures[s.Handle()]
		assert.Equal(t, 1, tex.Width)
		assert.Equal(t, 1, tex.Height)
		assert.Equal(t, gpu.RGB, tex.Format)
		assert.Equal(t, gpu.RGB, tex.Internal)
	}
	assert.Equal(t, []byte{255, 0, 0}, dev.Textures[l.Slot(0).Handle()].Pixels)
	assert.Equal(t, []byte{0, 255, 0}, dev.Textures[l.Slot(1).Handle()].Pixels)
	assert.True(t, dev.NothingBound())
	assert.Equal(t, 0, l.Gate().Count())
}

func TestLoadedTransition(t *testing.T) {
	dev := gputest.New()
	ready := 0
	l := NewLoader(dev, sources, Options{OnReady: func() { ready++ }})
	s := l.Slot(0)
	handle := s.Handle()

	img := ToRGB(testImage(4, 2, color.NRGBA{10, 20, 30, 255}))
	l.complete(s, img, nil)

	assert.Equal(t, Loaded, s.State())
	assert.NoError(t, s.Err())
	assert.Equal(t, handle, s.Handle(), "content is replaced in place")

	tex := dev.Textures[handle]
	assert.Equal(t, 4, tex.Width)
	assert.Equal(t, 2, tex.Height)
	assert.Equal(t, gpu.RGB, tex.Internal)
	assert.Equal(t, gpu.RGB, tex.Format)
	assert.Equal(t, img.Pix, tex.Pixels)
	assert.True(t, tex.FlipY)
	assert.True(t, tex.Mipmapped)
	assert.Equal(t, 2, tex.Uploads)
	assert.Equal(t, map[gpu.TexParam]gpu.TexValue{
		gpu.TexWrapS:     gpu.ClampToEdge,
		gpu.TexWrapT:     gpu.ClampToEdge,
		gpu.TexMinFilter: gpu.LinearMipmapLinear,
		gpu.TexMagFilter: gpu.Linear,
	}, tex.Params)
	assert.True(t, dev.NothingBound())

	assert.Equal(t, 1, l.Gate().Count())
	assert.Equal(t, 0, ready)

	// a duplicate completion is ignored
	l.complete(s, img, nil)
	assert.Equal(t, 1, l.Gate().Count())
	assert.Equal(t, 2, tex.Uploads)
}

func TestResolutionOrderIndependence(t *testing.T) {
	imgs := []*Image{
		ToRGB(testImage(2, 2, color.NRGBA{1, 2, 3, 255})),
		ToRGB(testImage(3, 1, color.NRGBA{4, 5, 6, 255})),
	}

	run := func(order ...int) ([]gputest.TextureState, int) {
		dev := gputest.New()
		ready := 0
		l := NewLoader(dev, sources, Options{OnReady: func() { ready++ }})
		for n, i := range order {
			l.complete(l.Slot(i), imgs[i], nil)
			if n < len(order)-1 {
				assert.Equal(t, 0, ready, "no trigger before the last slot")
			}
		}
		var out []gputest.TextureState
		for _, s := range l.Slots() {
			out = append(out, *dev.Textures[s.Handle()])
		}
		return out, ready
	}

	ab, readyAB := run(0, 1)
	ba, readyBA := run(1, 0)
	assert.Equal(t, 1, readyAB)
	assert.Equal(t, 1, readyBA)
	assert.Equal(t, ab, ba)
}

func TestFailurePolicy(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("strict", func(t *testing.T) {
		dev := gputest.New()
		ready := 0
		l := NewLoader(dev, sources, Options{OnReady: func() { ready++ }})
		l.complete(l.Slot(0), nil, cause)
		l.complete(l.Slot(1), ToRGB(testImage(1, 1, color.NRGBA{A: 255})), nil)

		s := l.Slot(0)
		assert.Equal(t, Failed, s.State())
		var fe *FetchError
		require.ErrorAs(t, s.Err(), &fe)
		assert.Equal(t, "globe", fe.Slot)
		assert.ErrorIs(t, s.Err(), cause)
		assert.Equal(t, []byte{255, 0, 0}, dev.Textures[s.Handle()].Pixels, "placeholder kept")
		assert.Equal(t, 1, l.Gate().Count())
		assert.Equal(t, 0, ready)
	})

	t.Run("count failures", func(t *testing.T) {
		dev := gputest.New()
		ready := 0
		l := NewLoader(dev, sources, Options{Policy: CountFailures, OnReady: func() { ready++ }})
		l.complete(l.Slot(0), nil, cause)
		l.complete(l.Slot(1), nil, cause)
		assert.Equal(t, 2, l.Gate().Count())
		assert.Equal(t, 1, ready)
	})
}

func TestDeviceErrorIsReported(t *testing.T) {
	dev := gputest.New()
	var results []Result
	l := NewLoader(dev, sources, Options{Observer: func(r Result) { results = append(results, r) }})

	dev.PendingError = 0x0505
	l.complete(l.Slot(1), ToRGB(testImage(1, 1, color.NRGBA{A: 255})), nil)

	s := l.Slot(1)
	assert.Equal(t, Loaded, s.State())
	var de *DeviceError
	require.ErrorAs(t, s.Err(), &de)
	assert.Equal(t, gpu.ErrorCode(0x0505), de.Code)
	assert.Equal(t, 1, l.Gate().Count())

	require.Len(t, results, 1)
	assert.Same(t, s, results[0].Slot)
	assert.Equal(t, Loaded, results[0].State)
}

func TestStartFetchesAndPostsToRenderThread(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "globe.png"), encodePNG(t, testImage(8, 4, color.NRGBA{0, 0, 255, 255})), 0o644))

	body := encodePNG(t, testImage(2, 2, color.NRGBA{9, 9, 9, 255}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dev := gputest.New()
	q := &queue{}
	ready := 0
	var results []Result
	l := NewLoader(dev, []Source{
		{Name: "globe", URI: "globe.png", Placeholder: red},
		{Name: "myimage", URI: srv.URL + "/eyeball.png", Placeholder: green},
	}, Options{
		Fetcher:  NewFetcher(dir),
		Poster:   q,
		OnReady:  func() { ready++ },
		Observer: func(r Result) { results = append(results, r) },
	})

	l.Start(context.Background())
	l.Wait()
	assert.Equal(t, 0, l.Gate().Count(), "nothing resolves off the render thread")
	assert.Equal(t, 2, q.drain())

	assert.Equal(t, 1, ready)
	assert.Len(t, results, 2)
	for _, s := range l.Slots() {
		assert.Equal(t, Loaded, s.State(), s.Name)
	}
	assert.Equal(t, 8, dev.Textures[l.Slot(0).Handle()].Width)
	assert.Equal(t, []byte{9, 9, 9}, dev.Textures[l.Slot(1).Handle()].Pixels[:3])

	l.Close()
	for _, s := range l.Slots() {
		assert.Zero(t, s.Handle())
	}
}

func TestFetchTimeout(t *testing.T) {
	dev := gputest.New()
	q := &queue{}
	blocking := fetchFunc(func(ctx context.Context, uri string) (image.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	l := NewLoader(dev, sources[:1], Options{Fetcher: blocking, Poster: q, Timeout: 10 * time.Millisecond})
	l.Start(context.Background())
	l.Wait()
	q.drain()

	s := l.Slot(0)
	assert.Equal(t, Failed, s.State())
	assert.ErrorIs(t, s.Err(), context.DeadlineExceeded)
	assert.Equal(t, 0, l.Gate().Count())
}

func TestCloseDropsQueuedResults(t *testing.T) {
	dev := gputest.New()
	q := &queue{}
	img := testImage(1, 1, color.NRGBA{A: 255})
	l := NewLoader(dev, sources, Options{
		Fetcher: fetchFunc(func(context.Context, string) (image.Image, error) { return img, nil }),
		Poster:  q,
	})
	l.Start(context.Background())
	l.Close()
	q.drain()
	assert.Equal(t, 0, l.Gate().Count())
	assert.Zero(t, dev.CallCount("GenerateMipmap"))
}

func TestFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello, this is not an image"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), encodePNG(t, testImage(3, 3, color.NRGBA{A: 255})), 0o644))

	f := NewFetcher(dir)
	ctx := context.Background()

	img, err := f.Fetch(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = f.Fetch(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "a.png")))
	assert.NoError(t, err)

	_, err = f.Fetch(ctx, "notes.txt")
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = f.Fetch(ctx, "missing.png")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = f.Fetch(ctx, "ftp://example.com/a.png")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = f.Fetch(ctx, srv.URL+"/a.png")
	assert.ErrorContains(t, err, "404")
}

func TestFetcherPathsAreNotURLs(t *testing.T) {
	dir := t.TempDir()
	data := encodePNG(t, testImage(2, 2, color.NRGBA{A: 255}))
	names := []string{"100%.png", "img:1.png", "a b.png", "50%25.png"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	f := NewFetcher(dir)
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), name)
			assert.NoError(t, err)

			_, err = f.Fetch(context.Background(), filepath.Join(dir, name))
			assert.NoError(t, err, "absolute path")
		})
	}

	// escapes in file URLs are decoded
	_, err := f.Fetch(context.Background(), "file://"+filepath.ToSlash(filepath.Join(dir, "a%20b.png")))
	assert.NoError(t, err)
}

func TestURLScheme(t *testing.T) {
	tests := []struct {
		in     string
		scheme string
		ok     bool
	}{
		{"https://example.com/a.png", "https", true},
		{"HTTP://example.com/a.png", "http", true},
		{"file:///tmp/a.png", "file", true},
		{"svn+ssh://host/a.png", "svn+ssh", true},
		{"a.png", "", false},
		{"img:1.png", "", false},
		{"100%.png", "", false},
		{`C:\tex\earth.jpg`, "", false},
		{"C:/tex/earth.jpg", "", false},
		{"://a.png", "", false},
		{"dir/x://y.png", "", false},
	}
	for _, tt := range tests {
		scheme, ok := urlScheme(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.scheme, scheme, tt.in)
	}
}

func TestFileURLPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"file:///tmp/a.png", "/tmp/a.png"},
		{"file://localhost/tmp/a.png", "/tmp/a.png"},
		{"file:///tmp/a%20b.png", "/tmp/a b.png"},
		{"file:///tmp/100%.png", "/tmp/100%.png"},
		{"file:///C:/tex/earth.jpg", "C:/tex/earth.jpg"},
		{"file:///c:/tex/earth.jpg", "c:/tex/earth.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.FromSlash(tt.want), fileURLPath(tt.in), tt.in)
	}
}

func TestFetcherRejectsOversizedDownload(t *testing.T) {
	data := encodePNG(t, testImage(8, 8, color.NRGBA{R: 9, A: 255}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	old := maxImageBytes
	t.Cleanup(func() { maxImageBytes = old })
	f := NewFetcher("")

	maxImageBytes = len(data)
	_, err := f.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err, "exactly at the limit")

	maxImageBytes = len(data) - 1
	_, err = f.Fetch(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NotErrorIs(t, err, ErrNotImage)
}

func TestToRGB(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.SetNRGBA(5, 5, color.NRGBA{1, 2, 3, 255})
	src.SetNRGBA(6, 5, color.NRGBA{4, 5, 6, 255})

	out := ToRGB(src)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 1, out.Height)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, out.Pix)
}

func TestToRGBKeepsTranslucentColour(t *testing.T) {
	px := color.NRGBA{200, 100, 50, 128}

	out := ToRGB(testImage(1, 1, px))
	assert.Equal(t, []byte{200, 100, 50}, out.Pix)

	// offset bounds force a conversion copy
	src := image.NewNRGBA(image.Rect(3, 3, 4, 4))
	src.SetNRGBA(3, 3, px)
	out = ToRGB(src)
	require.Len(t, out.Pix, 3)
	assert.InDelta(t, 200, int(out.Pix[0]), 1)
	assert.InDelta(t, 100, int(out.Pix[1]), 1)
	assert.InDelta(t, 50, int(out.Pix[2]), 1)

	// decoded through the same path the loader uses
	img, err := Decode(encodePNG(t, testImage(1, 1, px)))
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 100, 50}, ToRGB(img).Pix)
}

func TestSlotBindUsesItsUnit(t *testing.T) {
	dev := gputest.New()
	s := &Slot{Name: "b", Unit: 3, placeholder: green}
	s.commitPlaceholder(dev)

	s.Bind(dev)
	assert.Equal(t, 3, dev.ActiveUnit)
	assert.Equal(t, s.Handle(), dev.Units[3])
	assert.Empty(t, dev.Units[0])

	s.Unbind(dev)
	assert.Equal(t, 3, dev.ActiveUnit)
	assert.Empty(t, dev.Units[3])
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0000")
	require.NoError(t, err)
	assert.Equal(t, red, c)

	c, err = ParseColor("0f0")
	require.NoError(t, err)
	assert.Equal(t, green, c)

	_, err = ParseColor("#12345")
	assert.Error(t, err)
	_, err = ParseColor("#gg0000")
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{Strict, CountFailures} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePolicy("lenient")
	assert.Error(t, err)
}
