package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/journal"
	"pictora-hq/relay/pkg/proxy/types"
	"pictora-hq/relay/pkg/upstream"
)

type memoryJournal struct {
	mu      sync.Mutex
	records []journal.Record
}

func (m *memoryJournal) Record(_ context.Context, rec journal.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func testClient(provider string) *upstream.Client {
	return upstream.New(upstream.Config{Provider: provider, Timeout: 2 * time.Second})
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestBigModel_Success(t *testing.T) {
	var got bigModelRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/paas/v4/images/generations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer bm-key" {
			t.Errorf("Authorization = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"created":1,"data":[{"url":"https://cdn.bigmodel.cn/a.png"},{"b64_json":"aGVsbG8="},{}]}`)
	}))
	defer srv.Close()

	j := &memoryJournal{}
	h := NewBigModel(config.ProviderConfig{
		BaseURL: srv.URL + "/api/paas/v4",
		APIKey:  "bm-key",
		Model:   "cogview-3-flash",
	}, testClient(ProviderBigModel), Options{Journal: j})

	w := postJSON(h, "/api/generate", `{"prompt":"a red fox","size":"1024x1024"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	if got.Model != "cogview-3-flash" || got.Prompt != "a red fox" || got.Size != "1024x1024" {
		t.Errorf("upstream body = %+v", got)
	}

	var resp types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := []types.Artifact{{URL: "https://cdn.bigmodel.cn/a.png"}, {Base64: "aGVsbG8="}}
	if len(resp.Artifacts) != len(want) {
		t.Fatalf("artifacts = %+v, want %+v", resp.Artifacts, want)
	}
	for i := range want {
		if resp.Artifacts[i] != want[i] {
			t.Errorf("artifact[%d] = %+v, want %+v", i, resp.Artifacts[i], want[i])
		}
	}

	if len(j.records) != 1 || j.records[0].Status != journal.StatusSuccess || j.records[0].Reference != "cogview-3-flash" {
		t.Errorf("journal = %+v", j.records)
	}
}

func TestBigModel_Errors(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		body       string
		status     int
		upstream   string
		wantStatus int
		wantError  string
		wantCalls  int32
	}{
		{"missing prompt", "k", `{"size":"1024x1024"}`, 200, "", http.StatusBadRequest, "", 0},
		{"missing size", "k", `{"prompt":"fox"}`, 200, "", http.StatusBadRequest, "", 0},
		{"no api key", "", `{"prompt":"fox","size":"1024x1024"}`, 200, "", http.StatusInternalServerError, types.MsgServerMisconfigured, 0},
		{"zero images", "k", `{"prompt":"fox","size":"1024x1024"}`, 200, `{"data":[]}`, http.StatusInternalServerError, types.MsgGenerationFailed, 1},
		{"upstream status relayed", "k", `{"prompt":"fox","size":"1024x1024"}`, 429, `{"error":{"code":"1302","message":"rate limited"}}`, http.StatusTooManyRequests, types.MsgGenerationFailed, 1},
		{"upstream 400 relayed", "k", `{"prompt":"fox","size":"9x9"}`, 400, `{"error":{"code":"1214","message":"bad size"}}`, http.StatusBadRequest, types.MsgGenerationFailed, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.upstream)
			}))
			defer srv.Close()

			h := NewBigModel(config.ProviderConfig{BaseURL: srv.URL, APIKey: tt.apiKey, Model: "m"}, testClient(ProviderBigModel), Options{})
			w := postJSON(h, "/api/generate", tt.body)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" {
				if body := errorBody(t, w); body.Error != tt.wantError {
					t.Errorf("error = %q, want %q", body.Error, tt.wantError)
				}
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestBigModel_ErrorDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"1301","message":"unsafe content"}}`)
	}))
	defer srv.Close()

	h := NewBigModel(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k"}, testClient(ProviderBigModel), Options{})
	w := postJSON(h, "/api/generate", `{"prompt":"x","size":"1024x1024"}`)

	if body := errorBody(t, w); body.Details != "1301: unsafe content" {
		t.Errorf("details = %q, want 1301: unsafe content", body.Details)
	}
}

var initPNG = []byte("\x89PNG\r\n\x1a\ninit-image")

func TestStability_MultipartForm(t *testing.T) {
	providerJSON := `{"artifacts":[{"base64":"b3V0","seed":42,"finishReason":"SUCCESS"}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generation/sdxl/image-to-image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("Authorization") != "Bearer st-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}

		wantFields := map[string]string{
			"init_image_mode":         "IMAGE_STRENGTH",
			"image_strength":          "0.35",
			"cfg_scale":               "7",
			"samples":                 "1",
			"steps":                   "30",
			"text_prompts[0][text]":   "watercolor",
			"text_prompts[0][weight]": "1",
			"text_prompts[1][text]":   "blurry",
			"text_prompts[1][weight]": "-0.5",
		}
		for k, want := range wantFields {
			if got := r.FormValue(k); got != want {
				t.Errorf("field %s = %q, want %q", k, got, want)
			}
		}

		f, fh, err := r.FormFile("init_image")
		if err != nil {
			t.Fatalf("init_image part missing: %v", err)
		}
		defer f.Close()
		if fh.Filename != "init.png" {
			t.Errorf("filename = %q, want init.png", fh.Filename)
		}
		data, _ := io.ReadAll(f)
		if string(data) != string(initPNG) {
			t.Errorf("init_image bytes = %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, providerJSON)
	}))
	defer srv.Close()

	h := NewStability(config.ProviderConfig{BaseURL: srv.URL, APIKey: "st-key", Model: "sdxl"}, testClient(ProviderStability), Options{})

	body := `{"text_prompts":[{"text":"watercolor"},{"text":"blurry","weight":-0.5}],"init_image":"data:image/png;base64,` +
		base64.StdEncoding.EncodeToString(initPNG) + `"}`
	w := postJSON(h, "/api/generate-image-to-image", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if w.Body.String() != providerJSON {
		t.Errorf("body = %s, want provider JSON unchanged", w.Body.String())
	}
}

func TestStability_Errors(t *testing.T) {
	validImage := base64.StdEncoding.EncodeToString(initPNG)

	tests := []struct {
		name       string
		apiKey     string
		body       string
		status     int
		upstream   string
		wantStatus int
		wantType   string
		wantCalls  int32
	}{
		{"no prompts", "k", `{"text_prompts":[],"init_image":"` + validImage + `"}`, 200, "", http.StatusBadRequest, "", 0},
		{"empty prompt text", "k", `{"text_prompts":[{"text":""}],"init_image":"` + validImage + `"}`, 200, "", http.StatusBadRequest, "", 0},
		{"missing init image", "k", `{"text_prompts":[{"text":"a"}]}`, 200, "", http.StatusBadRequest, "", 0},
		{"invalid base64", "k", `{"text_prompts":[{"text":"a"}],"init_image":"%%%not-base64"}`, 200, "", http.StatusBadRequest, "", 0},
		{"no api key", "", `{"text_prompts":[{"text":"a"}],"init_image":"` + validImage + `"}`, 200, "", http.StatusInternalServerError, "", 0},
		{"moderation", "k", `{"text_prompts":[{"text":"a"}],"init_image":"` + validImage + `"}`, 400, `{"id":"abc","name":"content_moderation","message":"Your request was flagged"}`, http.StatusForbidden, types.TypeContentModeration, 1},
		{"other error relayed", "k", `{"text_prompts":[{"text":"a"}],"init_image":"` + validImage + `"}`, 401, `{"id":"abc","name":"unauthorized","message":"bad key"}`, http.StatusUnauthorized, "", 1},
		{"server error relayed", "k", `{"text_prompts":[{"text":"a"}],"init_image":"` + validImage + `"}`, 502, `upstream exploded`, http.StatusBadGateway, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.upstream)
			}))
			defer srv.Close()

			h := NewStability(config.ProviderConfig{BaseURL: srv.URL, APIKey: tt.apiKey, Model: "sdxl"}, testClient(ProviderStability), Options{})
			w := postJSON(h, "/api/generate-image-to-image", tt.body)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if body := errorBody(t, w); body.Type != tt.wantType {
				t.Errorf("type = %q, want %q", body.Type, tt.wantType)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestStability_ModerationBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"name":"content_moderation","message":"Your request was flagged by our content moderation system"}`)
	}))
	defer srv.Close()

	h := NewStability(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k", Model: "sdxl"}, testClient(ProviderStability), Options{})
	w := postJSON(h, "/api/generate-image-to-image",
		`{"text_prompts":[{"text":"a"}],"init_image":"`+base64.StdEncoding.EncodeToString(initPNG)+`"}`)

	body := errorBody(t, w)
	if body.Error != types.MsgContentModeration {
		t.Errorf("error = %q, want %q", body.Error, types.MsgContentModeration)
	}
	if !strings.Contains(body.Details, "content moderation system") {
		t.Errorf("details = %q", body.Details)
	}
}

func TestDecodeInitImage(t *testing.T) {
	raw := []byte("abc?")
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"padded", base64.StdEncoding.EncodeToString(raw), false},
		{"unpadded", base64.RawStdEncoding.EncodeToString(raw), false},
		{"data url", "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw), false},
		{"garbage", "***", true},
		{"empty after prefix", "data:image/png;base64,", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeInitImage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeInitImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != string(raw) {
				t.Errorf("decodeInitImage() = %q, want %q", got, raw)
			}
		})
	}
}

func TestHandlerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewBigModel(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k"}, testClient(ProviderBigModel), Options{Timeout: 50 * time.Millisecond})
	w := postJSON(h, "/api/generate", `{"prompt":"x","size":"1024x1024"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := errorBody(t, w); body.Error != types.MsgGenerationFailed {
		t.Errorf("error = %q, want %q", body.Error, types.MsgGenerationFailed)
	}
}
