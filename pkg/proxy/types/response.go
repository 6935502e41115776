package types

// Artifact is one generated image. Exactly one of URL and Base64 is
// normally set, depending on what the provider returned.
type Artifact struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// GenerateResponse is the uniform text-to-image response.
type GenerateResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}

// CreateOrderResponse is returned by create-order.
type CreateOrderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
}

// CaptureResponse is returned by capture-order when the capture completed.
type CaptureResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionID"`
	Amount        string `json:"amount"`
}

// OrderStatusResponse is returned by check-status.
type OrderStatusResponse struct {
	OrderID       string `json:"orderID"`
	Status        string `json:"status"`
	Amount        string `json:"amount,omitempty"`
	TransactionID string `json:"transactionID,omitempty"`
}
