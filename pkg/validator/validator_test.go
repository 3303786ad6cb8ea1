package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	ID         string `json:"id" validate:"required"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
}

type orderRequest struct {
	Items []lineRequest `json:"items" validate:"required,min=1,dive"`
	Note  string        `json:"note" validate:"max=5"`
}

func TestValidate_Success(t *testing.T) {
	req := orderRequest{Items: []lineRequest{{ID: "p1", PriceCents: 1990, Quantity: 1}}}
	assert.NoError(t, Validate(req))
}

func TestValidate_EmptySlice(t *testing.T) {
	err := Validate(orderRequest{Items: []lineRequest{}})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "must contain at least 1 item(s)", valErr.Fields()["items"])
}

func TestValidate_NestedFieldsUseJSONPaths(t *testing.T) {
	req := orderRequest{Items: []lineRequest{{ID: "", PriceCents: -1, Quantity: 0}}}

	var valErr *ValidationError
	require.True(t, errors.As(Validate(req), &valErr))

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["items[0].id"])
	assert.Equal(t, "must be greater than or equal to 0", fields["items[0].price_cents"])
	assert.Equal(t, "must be greater than or equal to 1", fields["items[0].quantity"])
}

func TestValidationError_ErrorString(t *testing.T) {
	req := orderRequest{Items: []lineRequest{{ID: "p1", Quantity: 1}}, Note: "too long"}
	err := Validate(req)
	require.Error(t, err)
	assert.Equal(t, "note must be at most 5 characters", err.Error())
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"items":[{"id":"p1","price_cents":1990,"quantity":2}]}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var req orderRequest
	require.NoError(t, DecodeAndValidate(r, &req))
	assert.Equal(t, 2, req.Items[0].Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))

	var req orderRequest
	err := DecodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[]}`))

	var req orderRequest
	var valErr *ValidationError
	assert.True(t, errors.As(DecodeAndValidate(r, &req), &valErr))
}
