package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/agrostore/pkg/httputil"
	"github.com/utafrali/agrostore/pkg/logger"
	"github.com/utafrali/agrostore/pkg/middleware"
	"github.com/utafrali/agrostore/pkg/validator"
	"github.com/utafrali/agrostore/services/orderapi/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var input service.CreateOrderInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		logger.Ctx(r.Context(), h.logger).DebugContext(r.Context(), "order request rejected",
			slog.String("error", err.Error()),
		)
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, r, err)
			return
		}
		writeDecodeError(w, r, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, order)
}

// writeDecodeError maps JSON decoding failures onto the order validation
// messages where the offending field is known.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		maxErr  *http.MaxBytesError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxErr):
		httputil.WriteErrorCode(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
	case errors.As(err, &typeErr):
		msg := "invalid request body: " + typeErr.Field + " has the wrong type"
		switch {
		case typeErr.Field == "items":
			msg = service.MsgItemsRequired
		case strings.HasSuffix(typeErr.Field, ".id"), strings.HasSuffix(typeErr.Field, ".name"):
			msg = service.MsgItemIdentity
		case strings.HasSuffix(typeErr.Field, ".price_cents"), strings.HasSuffix(typeErr.Field, ".quantity"):
			msg = service.MsgItemNumbers
		}
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", msg)
	default:
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
	}
}
