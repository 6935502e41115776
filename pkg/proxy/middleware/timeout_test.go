package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pictora-hq/relay/pkg/proxy/types"
)

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("completes within timeout", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("done"))
		})

		w := httptest.NewRecorder()
		TimeoutMiddleware(time.Second, nil)(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusCreated {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
		}
		if w.Body.String() != "done" {
			t.Errorf("Body = %q, want done", w.Body.String())
		}
		if w.Header().Get("X-Cache") != "HIT" {
			t.Error("handler headers were not copied")
		}
	})

	t.Run("returns 504 on timeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			_, _ = w.Write([]byte("late"))
		})

		w := httptest.NewRecorder()
		TimeoutMiddleware(20*time.Millisecond, nil)(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusGatewayTimeout {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusGatewayTimeout)
		}
		var body types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
		}
		if body.Error != types.MsgTimeout {
			t.Errorf("error = %q, want %q", body.Error, types.MsgTimeout)
		}
	})

	t.Run("panic propagates to outer recovery", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})

		wrapped := RecoveryMiddleware(nil)(TimeoutMiddleware(time.Second, nil)(handler))
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})

	t.Run("zero timeout disables", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				t.Error("context has a deadline with timeout disabled")
			}
		})
		TimeoutMiddleware(0, nil)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
