package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/journal"
	"pictora-hq/relay/pkg/proxy"
	"pictora-hq/relay/pkg/proxy/types"
	"pictora-hq/relay/pkg/telemetry/tracing"
	"pictora-hq/relay/pkg/upstream"
)

// ProviderStability labels Stability calls in logs, metrics, and the journal.
const ProviderStability = "stability"

// Fixed image-to-image parameters.
const (
	InitImageMode = "IMAGE_STRENGTH"
	ImageStrength = "0.35"
	CFGScale      = "7"
	Samples       = "1"
	Steps         = "30"
)

// moderationErrorName is the error name Stability uses for content-policy rejections.
const moderationErrorName = "content_moderation"

type stabilityError struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Stability handles image-to-image generation.
type Stability struct {
	cfg    config.ProviderConfig
	client *upstream.Client
	opts   Options
	logger *slog.Logger
}

// NewStability creates the POST /api/generate-image-to-image handler.
func NewStability(cfg config.ProviderConfig, client *upstream.Client, opts Options) *Stability {
	return &Stability{
		cfg:    cfg,
		client: client,
		opts:   opts,
		logger: opts.logger(ProviderStability),
	}
}

// ServeHTTP implements http.Handler. A successful provider response is
// returned unchanged.
func (h *Stability) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodPost) {
		return
	}

	var req types.ImageToImageRequest
	if err := proxy.DecodeJSON(r, &req); err != nil {
		proxy.WriteHandledError(w, err, types.MsgGenerationFailed)
		return
	}

	ctx, cancel := withTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	start := time.Now()
	body, err := h.Generate(ctx, &req)
	h.journal(ctx, start, err)
	if err != nil {
		h.logger.WarnContext(ctx, "image-to-image generation failed", "error", err)
		proxy.WriteHandledError(w, err, types.MsgGenerationFailed)
		return
	}

	h.logger.InfoContext(ctx, "image-to-image generation completed", "bytes", len(body))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Generate sends one image-to-image call and returns the provider's JSON.
func (h *Stability) Generate(ctx context.Context, req *types.ImageToImageRequest) ([]byte, error) {
	image, err := decodeInitImage(req.InitImage)
	if err != nil {
		return nil, err
	}

	if !h.cfg.Configured() {
		return nil, &proxy.ConfigError{Setting: "STABILITY_API_KEY"}
	}

	tracing.SetModelAttribute(tracing.SpanFromContext(ctx), h.cfg.Model)

	body, contentType, err := buildImageToImageForm(image, req.TextPrompts)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/generation/%s/image-to-image", strings.TrimRight(h.cfg.BaseURL, "/"), h.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build stability request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		var e stabilityError
		_ = json.Unmarshal(resp.Body, &e)
		if e.Name == moderationErrorName {
			tracing.SetErrorType(tracing.SpanFromContext(ctx), moderationErrorName)
			return nil, &proxy.ModerationError{Provider: ProviderStability, Message: e.Message}
		}

		details := e.Message
		if details == "" {
			details = truncate(string(resp.Body), 512)
		}
		return nil, &proxy.GenerationFailedError{StatusCode: resp.StatusCode, Details: details}
	}

	return resp.Body, nil
}

func (h *Stability) journal(ctx context.Context, start time.Time, err error) {
	if h.opts.Journal == nil {
		return
	}
	h.opts.Journal.Record(ctx, journal.NewRecord(journal.KindGeneration, ProviderStability, h.cfg.Model, start, err))
}

// decodeInitImage decodes a base64 image, accepting an optional data URL
// prefix and unpadded input.
func decodeInitImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil || len(data) == 0 {
		details := "init_image is empty"
		if err != nil {
			details = err.Error()
		}
		return nil, &proxy.RequestError{Message: "Invalid init_image", Details: details}
	}
	return data, nil
}

// buildImageToImageForm writes the multipart body for the image-to-image
// endpoint.
func buildImageToImageForm(image []byte, prompts []types.TextPrompt) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("init_image", "init.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"init_image_mode", InitImageMode},
		{"image_strength", ImageStrength},
	}
	for i, p := range prompts {
		fields = append(fields,
			[2]string{fmt.Sprintf("text_prompts[%d][text]", i), p.Text},
			[2]string{fmt.Sprintf("text_prompts[%d][weight]", i), strconv.FormatFloat(p.WeightOrDefault(), 'f', -1, 64)},
		)
	}
	fields = append(fields,
		[2]string{"cfg_scale", CFGScale},
		[2]string{"samples", Samples},
		[2]string{"steps", Steps},
	)

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
