package types

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var amountPattern = regexp.MustCompile(`^\d{1,10}(\.\d{1,2})?$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// "amount" is a positive decimal with at most two fraction digits.
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !amountPattern.MatchString(s) {
			return false
		}
		for _, c := range s {
			if c >= '1' && c <= '9' {
				return true
			}
		}
		return false
	})
	return v
}

// ValidateStruct runs tag validation on a request body.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Size   string `json:"size" validate:"required"`
}

// Validate implements validation for GenerateRequest.
func (r *GenerateRequest) Validate() error {
	return validate.Struct(r)
}

// TextPrompt is one weighted prompt of an image-to-image request.
type TextPrompt struct {
	Text string `json:"text" validate:"required"`

	// Weight defaults to 1 when omitted.
	Weight *float64 `json:"weight,omitempty"`
}

// WeightOrDefault returns the prompt weight, or 1 when unset.
func (p TextPrompt) WeightOrDefault() float64 {
	if p.Weight == nil {
		return 1
	}
	return *p.Weight
}

// ImageToImageRequest is the body of POST /api/generate-image-to-image.
type ImageToImageRequest struct {
	TextPrompts []TextPrompt `json:"text_prompts" validate:"required,min=1,dive"`

	// InitImage is the base64-encoded source image. A data URL prefix
	// ("data:image/png;base64,") is accepted and stripped.
	InitImage string `json:"init_image" validate:"required"`
}

// Validate implements validation for ImageToImageRequest.
func (r *ImageToImageRequest) Validate() error {
	return validate.Struct(r)
}

// CreateOrderRequest is the body of POST /api/paypal/create-order.
type CreateOrderRequest struct {
	Amount      string `json:"amount" validate:"required,amount"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Description string `json:"description,omitempty" validate:"max=127"`
}

// Validate implements validation for CreateOrderRequest.
func (r *CreateOrderRequest) Validate() error {
	return validate.Struct(r)
}

// OrderRequest is the body of the capture-order and check-status calls.
type OrderRequest struct {
	OrderID string `json:"orderID" validate:"required,alphanum,max=64"`
}

// Validate implements validation for OrderRequest.
func (r *OrderRequest) Validate() error {
	return validate.Struct(r)
}
