package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/journal"
	"pictora-hq/relay/pkg/proxy"
	"pictora-hq/relay/pkg/proxy/types"
	"pictora-hq/relay/pkg/telemetry/tracing"
	"pictora-hq/relay/pkg/upstream"
)

// ProviderBigModel labels BigModel calls in logs, metrics, and the journal.
const ProviderBigModel = "bigmodel"

type bigModelRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type bigModelResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type bigModelError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// BigModel handles text-to-image generation through the CogView API.
type BigModel struct {
	cfg    config.ProviderConfig
	client *upstream.Client
	opts   Options
	logger *slog.Logger
}

// NewBigModel creates the POST /api/generate handler.
func NewBigModel(cfg config.ProviderConfig, client *upstream.Client, opts Options) *BigModel {
	return &BigModel{
		cfg:    cfg,
		client: client,
		opts:   opts,
		logger: opts.logger(ProviderBigModel),
	}
}

// ServeHTTP implements http.Handler.
func (h *BigModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodPost) {
		return
	}

	var req types.GenerateRequest
	if err := proxy.DecodeJSON(r, &req); err != nil {
		proxy.WriteHandledError(w, err, types.MsgGenerationFailed)
		return
	}

	ctx, cancel := withTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := h.Generate(ctx, &req)
	h.journal(ctx, start, err)
	if err != nil {
		h.logger.WarnContext(ctx, "text-to-image generation failed", "error", err)
		proxy.WriteHandledError(w, err, types.MsgGenerationFailed)
		return
	}

	h.logger.InfoContext(ctx, "text-to-image generation completed", "artifacts", len(resp.Artifacts))
	_ = proxy.WriteJSONResponse(w, http.StatusOK, resp)
}

// Generate sends one generation call and normalizes the result.
func (h *BigModel) Generate(ctx context.Context, req *types.GenerateRequest) (*types.GenerateResponse, error) {
	if !h.cfg.Configured() {
		return nil, &proxy.ConfigError{Setting: "BIGMODEL_API_KEY"}
	}

	tracing.SetModelAttribute(tracing.SpanFromContext(ctx), h.cfg.Model)

	payload, err := json.Marshal(bigModelRequest{
		Model:  h.cfg.Model,
		Prompt: req.Prompt,
		Size:   req.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bigmodel request: %w", err)
	}

	endpoint := strings.TrimRight(h.cfg.BaseURL, "/") + "/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build bigmodel request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return nil, &proxy.GenerationFailedError{
			StatusCode: resp.StatusCode,
			Details:    bigModelErrorDetails(resp),
		}
	}

	var parsed bigModelResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, &proxy.GenerationFailedError{Details: "invalid provider response", Cause: err}
	}

	out := &types.GenerateResponse{Artifacts: make([]types.Artifact, 0, len(parsed.Data))}
	for _, d := range parsed.Data {
		if d.URL == "" && d.B64JSON == "" {
			continue
		}
		out.Artifacts = append(out.Artifacts, types.Artifact{URL: d.URL, Base64: d.B64JSON})
	}
	if len(out.Artifacts) == 0 {
		return nil, &proxy.GenerationFailedError{Details: types.MsgNoImages}
	}
	return out, nil
}

func (h *BigModel) journal(ctx context.Context, start time.Time, err error) {
	if h.opts.Journal == nil {
		return
	}
	h.opts.Journal.Record(ctx, journal.NewRecord(journal.KindGeneration, ProviderBigModel, h.cfg.Model, start, err))
}

func bigModelErrorDetails(resp *upstream.Response) string {
	var e bigModelError
	if err := json.Unmarshal(resp.Body, &e); err == nil && e.Error.Message != "" {
		if e.Error.Code != "" {
			return e.Error.Code + ": " + e.Error.Message
		}
		return e.Error.Message
	}
	return truncate(string(resp.Body), 512)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
