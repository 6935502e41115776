package imageproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pictora-hq/relay/pkg/cache"
	"pictora-hq/relay/pkg/proxy/types"
	"pictora-hq/relay/pkg/upstream"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newTestHandler(t *testing.T) (*Handler, *cache.Cache) {
	t.Helper()
	c := cache.New(cache.Options{})
	t.Cleanup(c.Close)

	display := upstream.New(upstream.Config{
		Provider:       "image",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	download := upstream.New(upstream.Config{Provider: "image_download"})

	return NewHandler(NewService(c, display, time.Second, nil), download, nil), c
}

func displayRequest(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/proxy-image-display?url="+url.QueryEscape(target), nil)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestDisplay_MissThenHit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	h, _ := newTestHandler(t)
	target := srv.URL + "/a.webp"

	for i, wantCache := range []string{"MISS", "HIT"} {
		w := httptest.NewRecorder()
		h.Display(w, displayRequest(target))

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
		if got := w.Header().Get("X-Cache"); got != wantCache {
			t.Errorf("request %d: X-Cache = %q, want %q", i, got, wantCache)
		}
		if got := w.Header().Get("Content-Type"); got != "image/webp" {
			t.Errorf("Content-Type = %q, want image/webp", got)
		}
		if got := w.Header().Get("Cache-Control"); got != DisplayCacheControl {
			t.Errorf("Cache-Control = %q, want %q", got, DisplayCacheControl)
		}
		if got := w.Header().Get("CDN-Cache-Control"); got != DisplayCDNCacheControl {
			t.Errorf("CDN-Cache-Control = %q, want %q", got, DisplayCDNCacheControl)
		}
		if w.Body.String() != string(pngBytes) {
			t.Errorf("body = %q, want image bytes", w.Body.String())
		}
	}

	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}
}

func TestDisplay_DefaultContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	h, _ := newTestHandler(t)
	w := httptest.NewRecorder()
	h.Display(w, displayRequest(srv.URL+"/x"))

	if got := w.Header().Get("Content-Type"); got != DefaultContentType {
		t.Errorf("Content-Type = %q, want %q", got, DefaultContentType)
	}
}

func TestDisplay_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"missing url", "/api/proxy-image-display", http.StatusBadRequest, types.MsgMissingURL},
		{"empty url", "/api/proxy-image-display?url=", http.StatusBadRequest, types.MsgMissingURL},
		{"upstream 404", "/api/proxy-image-display?url=" + url.QueryEscape(notFound.URL+"/gone.png"), http.StatusInternalServerError, types.MsgFetchFailed},
		{"unsupported scheme", "/api/proxy-image-display?url=" + url.QueryEscape("ftp://host/a.png"), http.StatusInternalServerError, types.MsgFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, c := newTestHandler(t)
			w := httptest.NewRecorder()
			h.Display(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeError(t, w); body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
			if c.Len() != 0 {
				t.Errorf("cache Len() = %d after failure, want 0", c.Len())
			}
		})
	}
}

func TestDisplay_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	h, _ := newTestHandler(t)
	w := httptest.NewRecorder()
	h.Display(w, displayRequest(srv.URL+"/flaky.png"))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}

func TestDisplay_ConcurrentMissesShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	h, _ := newTestHandler(t)
	target := srv.URL + "/shared.png"

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			h.Display(w, displayRequest(target))
			codes[i] = w.Code
		}(i)
	}

	// Let every goroutine join the flight before the upstream answers
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}
	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, code)
		}
	}
}

func TestDisplay_ExpiredEntryRefetched(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }

	c := cache.New(cache.Options{Clock: clock})
	defer c.Close()
	h := NewHandler(NewService(c, upstream.New(upstream.Config{}), time.Second, nil), upstream.New(upstream.Config{}), nil)

	target := srv.URL + "/ttl.png"
	h.Display(httptest.NewRecorder(), displayRequest(target))

	mu.Lock()
	now = now.Add(cache.DefaultTTL)
	mu.Unlock()

	w := httptest.NewRecorder()
	h.Display(w, displayRequest(target))

	if got := w.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS after TTL", got)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}

type countingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (o *countingObserver) CacheHit(string)                   { o.mu.Lock(); o.hits++; o.mu.Unlock() }
func (o *countingObserver) CacheMiss(string)                  { o.mu.Lock(); o.misses++; o.mu.Unlock() }
func (o *countingObserver) CacheEviction(string, string, int) {}
func (o *countingObserver) CacheSize(string, int)             {}

func TestDisplay_ColdMissCountedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	obs := &countingObserver{}
	c := cache.New(cache.Options{Observer: obs})
	defer c.Close()
	h := NewHandler(NewService(c, upstream.New(upstream.Config{}), time.Second, nil), upstream.New(upstream.Config{}), nil)

	target := srv.URL + "/cold.png"
	w := httptest.NewRecorder()
	h.Display(w, displayRequest(target))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	obs.mu.Lock()
	if obs.misses != 1 || obs.hits != 0 {
		t.Errorf("after cold request: misses = %d, hits = %d; want 1, 0", obs.misses, obs.hits)
	}
	obs.mu.Unlock()

	h.Display(httptest.NewRecorder(), displayRequest(target))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.misses != 1 || obs.hits != 1 {
		t.Errorf("after warm request: misses = %d, hits = %d; want 1, 1", obs.misses, obs.hits)
	}
}

func TestService_FetchedEntryUsesCacheClock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	now := time.Date(2020, 6, 1, 8, 0, 0, 0, time.UTC)
	c := cache.New(cache.Options{Clock: func() time.Time { return now }})
	defer c.Close()
	svc := NewService(c, upstream.New(upstream.Config{}), time.Second, nil)

	e, hit, err := svc.Get(context.Background(), srv.URL+"/clock.gif")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("hit = true on cold fetch")
	}
	if !e.InsertedAt.Equal(now) {
		t.Errorf("InsertedAt = %v, want %v", e.InsertedAt, now)
	}
	if e.ContentType != "image/gif" {
		t.Errorf("ContentType = %q, want image/gif", e.ContentType)
	}
}

func TestDisplay_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	w := httptest.NewRecorder()
	h.Display(w, httptest.NewRequest(http.MethodPost, "/api/proxy-image-display?url=x", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "GET, HEAD" {
		t.Errorf("Allow = %q, want GET, HEAD", got)
	}
}

func TestDownload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/forbidden.png":
			w.WriteHeader(http.StatusForbidden)
		case "/unavailable.png":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/noext":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(pngBytes)
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name            string
		target          string
		wantStatus      int
		wantDisposition string
		wantError       string
	}{
		{"named file", srv.URL + "/art/sunset.png", http.StatusOK, `attachment; filename="sunset.png"`, ""},
		{"extension from content type", srv.URL + "/noext", http.StatusOK, `attachment; filename="noext.jpg"`, ""},
		{"root path falls back", srv.URL + "/", http.StatusOK, `attachment; filename="image.png"`, ""},
		{"relays 403", srv.URL + "/forbidden.png", http.StatusForbidden, "", types.MsgDownloadFailed},
		{"relays 503 without retry", srv.URL + "/unavailable.png", http.StatusServiceUnavailable, "", types.MsgDownloadFailed},
		{"ftp rejected", "ftp://example.com/a.png", http.StatusBadRequest, "", types.MsgInvalidProtocol},
		{"javascript rejected", "javascript:alert(1)", http.StatusBadRequest, "", types.MsgInvalidProtocol},
		{"unparseable", "http://[::1", http.StatusBadRequest, "", types.MsgInvalidProtocol},
		{"missing", "", http.StatusBadRequest, "", types.MsgMissingURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, c := newTestHandler(t)
			before := calls.Load()

			w := httptest.NewRecorder()
			h.Download(w, httptest.NewRequest(http.MethodGet, "/api/proxy-image?url="+url.QueryEscape(tt.target), nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
			if tt.wantError != "" {
				if body := decodeError(t, w); body.Error != tt.wantError {
					t.Errorf("error = %q, want %q", body.Error, tt.wantError)
				}
			} else if got := w.Header().Get("Content-Disposition"); got != tt.wantDisposition {
				t.Errorf("Content-Disposition = %q, want %q", got, tt.wantDisposition)
			}
			if c.Len() != 0 {
				t.Error("download populated the display cache")
			}
			if d := calls.Load() - before; d > 1 {
				t.Errorf("upstream calls = %d, want at most 1", d)
			}
		})
	}
}

func TestAttachmentFilename(t *testing.T) {
	tests := []struct {
		rawURL      string
		contentType string
		want        string
	}{
		{"https://cdn.example/a/b/photo.jpeg", "image/jpeg", "photo.jpeg"},
		{"https://cdn.example/a/b/photo", "image/webp", "photo.webp"},
		{"https://cdn.example/a/b/photo", "image/png; charset=binary", "photo.png"},
		{"https://cdn.example/a/b/photo", "", "photo.png"},
		{"https://cdn.example/a/b/photo", "application/octet-stream", "photo.png"},
		{"https://cdn.example/", "image/jpeg", "image.png"},
		{"https://cdn.example", "image/jpeg", "image.png"},
		{`https://cdn.example/we%22ird.png`, "image/png", "we_ird.png"},
	}

	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatal(err)
			}
			if got := attachmentFilename(u, tt.contentType); got != tt.want {
				t.Errorf("attachmentFilename(%q, %q) = %q, want %q", tt.rawURL, tt.contentType, got, tt.want)
			}
		})
	}
}
