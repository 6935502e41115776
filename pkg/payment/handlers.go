package payment

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pictora-hq/relay/pkg/journal"
	"pictora-hq/relay/pkg/proxy"
	"pictora-hq/relay/pkg/proxy/types"
)

// Operation labels for metrics and logs.
const (
	OpCreate  = "create"
	OpCapture = "capture"
	OpStatus  = "status"
)

// Recorder receives payment outcome metrics. The metrics collector implements it.
type Recorder interface {
	RecordPayment(operation, status string)
}

// Journal records completed relays. *journal.Recorder implements it.
type Journal interface {
	Record(ctx context.Context, rec journal.Record)
}

// Handler serves the PayPal relay endpoints.
type Handler struct {
	client   *Client
	timeout  time.Duration
	recorder Recorder
	journal  Journal
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) HandlerOption {
	return func(h *Handler) { h.recorder = r }
}

// WithJournal sets the relay journal.
func WithJournal(j Journal) HandlerOption {
	return func(h *Handler) { h.journal = j }
}

// WithTimeout bounds each handler, the token fetch included.
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates the PayPal handlers.
func NewHandler(client *Client, opts ...HandlerOption) *Handler {
	h := &Handler{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "payment")
	return h
}

// CreateOrder handles POST /api/paypal/create-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodPost) {
		return
	}

	var req types.CreateOrderRequest
	if err := proxy.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, OpCreate, "", err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	start := time.Now()
	order, err := h.client.CreateOrder(ctx, req.Amount, req.Currency, req.Description)
	if err != nil {
		h.finish(ctx, OpCreate, "", "", start, err)
		h.fail(w, r, OpCreate, "", err)
		return
	}
	h.finish(ctx, OpCreate, order.ID, order.Status, start, nil)

	_ = proxy.WriteJSONResponse(w, http.StatusOK, types.CreateOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
	})
}

// CaptureOrder handles POST /api/paypal/capture-order.
func (h *Handler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodPost) {
		return
	}

	var req types.OrderRequest
	if err := proxy.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, OpCapture, "", err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	start := time.Now()
	order, err := h.client.CaptureOrder(ctx, req.OrderID)
	if err == nil && order.Status != StatusCompleted {
		err = &proxy.PaymentIncompleteError{Status: order.Status}
	}
	if err != nil {
		status := ""
		if order != nil {
			status = order.Status
		}
		h.finish(ctx, OpCapture, req.OrderID, status, start, err)
		h.fail(w, r, OpCapture, req.OrderID, err)
		return
	}
	h.finish(ctx, OpCapture, req.OrderID, order.Status, start, nil)

	resp := types.CaptureResponse{Success: true}
	if c := order.FirstCapture(); c != nil {
		resp.TransactionID = c.ID
		if c.Amount != nil {
			resp.Amount = c.Amount.Value
		}
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, resp)
}

// CheckStatus handles POST /api/paypal/check-status.
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	if !proxy.AllowMethods(w, r, http.MethodPost) {
		return
	}

	var req types.OrderRequest
	if err := proxy.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, OpStatus, "", err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	start := time.Now()
	order, err := h.client.GetOrder(ctx, req.OrderID)
	if err != nil {
		h.finish(ctx, OpStatus, req.OrderID, "", start, err)
		h.fail(w, r, OpStatus, req.OrderID, err)
		return
	}
	h.finish(ctx, OpStatus, req.OrderID, order.Status, start, nil)

	resp := types.OrderStatusResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Amount:  order.Amount(),
	}
	if c := order.FirstCapture(); c != nil {
		resp.TransactionID = c.ID
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, resp)
}

func (h *Handler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// finish records metrics and the journal entry for one PayPal call.
func (h *Handler) finish(ctx context.Context, op, orderID, status string, start time.Time, err error) {
	if h.recorder != nil {
		metricStatus := status
		if err != nil && status == "" {
			metricStatus = "error"
		}
		h.recorder.RecordPayment(op, metricStatus)
	}

	if h.journal != nil {
		rec := journal.NewRecord(journal.KindPayment, ProviderPayPal, orderID, start, err)
		if status != "" && err == nil {
			rec.Status = status
		}
		h.journal.Record(ctx, rec)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op, orderID string, err error) {
	status := proxy.WriteHandledError(w, err, types.MsgPaymentFailed)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "paypal operation failed",
		"operation", op,
		"order_id", orderID,
		"status", status,
		"error", err,
	)
}
