package imageproxy

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"pictora-hq/relay/pkg/proxy"
	"pictora-hq/relay/pkg/proxy/types"
	"pictora-hq/relay/pkg/upstream"
)

// Response cache headers for the display proxy.
const (
	DisplayCacheControl    = "public, max-age=1800, s-maxage=1800"
	DisplayCDNCacheControl = "public, max-age=86400"
	DefaultContentType     = "image/png"
)

// Handler serves the display and download proxy endpoints.
type Handler struct {
	service  *Service
	download *upstream.Client
	logger   *slog.Logger
}

// NewHandler creates the image proxy handlers. download is used without
// the cache and must not retry, so the first upstream status is relayed.
func NewHandler(service *Service, download *upstream.Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		download: download,
		logger:   logger.With("component", "imageproxy"),
	}
}

// Display handles GET /api/proxy-image-display?url=.
func (h *Handler) Display(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		_ = proxy.WriteError(w, http.StatusBadRequest, types.NewErrorResponse(types.MsgMissingURL, ""))
		return
	}

	entry, cached, err := h.service.Get(r.Context(), target)
	if err != nil {
		h.logger.WarnContext(r.Context(), "image fetch failed",
			"status", upstream.StatusCode(err),
			"error", err,
		)
		_ = proxy.WriteError(w, http.StatusInternalServerError,
			types.NewErrorResponse(types.MsgFetchFailed, err.Error()))
		return
	}

	contentType := entry.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Content-Length", strconv.Itoa(len(entry.Payload)))
	hdr.Set("Cache-Control", DisplayCacheControl)
	hdr.Set("CDN-Cache-Control", DisplayCDNCacheControl)
	if cached {
		hdr.Set("X-Cache", "HIT")
	} else {
		hdr.Set("X-Cache", "MISS")
	}

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(entry.Payload)
	}
}

// Download handles GET /api/proxy-image?url=. The image is fetched once,
// never cached, and returned as an attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		_ = proxy.WriteError(w, http.StatusBadRequest, types.NewErrorResponse(types.MsgMissingURL, ""))
		return
	}

	u, err := url.Parse(target)
	if err != nil {
		proxy.WriteHandledError(w, &proxy.InvalidProtocolError{}, types.MsgDownloadFailed)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		proxy.WriteHandledError(w, &proxy.InvalidProtocolError{Scheme: u.Scheme}, types.MsgDownloadFailed)
		return
	}

	img, err := h.download.Get(r.Context(), target)
	if err != nil {
		var ue *upstream.Error
		if errors.As(err, &ue) && ue.StatusCode > 0 {
			h.logger.InfoContext(r.Context(), "relaying upstream download status", "status", ue.StatusCode)
			_ = proxy.WriteError(w, ue.StatusCode,
				types.NewErrorResponse(types.MsgDownloadFailed, http.StatusText(ue.StatusCode)))
			return
		}
		h.logger.WarnContext(r.Context(), "image download failed", "error", err)
		proxy.WriteHandledError(w, err, types.MsgDownloadFailed)
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Content-Length", strconv.Itoa(len(img.Body)))
	hdr.Set("Content-Disposition", `attachment; filename="`+attachmentFilename(u, contentType)+`"`)
	hdr.Set("Cache-Control", "no-store")

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(img.Body)
	}
}
