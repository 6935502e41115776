package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Paths configures where the probe handlers are mounted.
type Paths struct {
	Liveness  string
	Readiness string
	Version   string
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// LivenessHandler returns the liveness probe handler. It always returns 200
// while the process is serving.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeStatus(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns the readiness probe handler: 200 when every
// enabled component is healthy, 503 otherwise.
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "image_cache": {"status": "ok", "duration_ms": 0.01},
//	        "journal": {"status": "unhealthy", "message": "database is locked"},
//	        "paypal": {"status": "disabled", "message": "PAYPAL_CLIENT_ID not set"}
//	    },
//	    "timestamp": "2026-01-20T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}

		status := c.CheckReadiness(r.Context())
		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, r, code, status)
	}
}

// VersionHandler returns a handler reporting build information.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeStatus(w, r, http.StatusOK, info)
	}
}

// Register mounts the liveness, readiness, and version handlers on mux.
// Empty paths fall back to /health, /ready, and /version.
func Register(mux *http.ServeMux, checker *Checker, paths Paths, info VersionInfo) {
	if paths.Liveness == "" {
		paths.Liveness = "/health"
	}
	if paths.Readiness == "" {
		paths.Readiness = "/ready"
	}
	if paths.Version == "" {
		paths.Version = "/version"
	}

	mux.HandleFunc(paths.Liveness, checker.LivenessHandler())
	mux.HandleFunc(paths.Readiness, checker.ReadinessHandler())
	mux.HandleFunc(paths.Version, VersionHandler(info.Version, info.Commit, info.BuildTime))
}
