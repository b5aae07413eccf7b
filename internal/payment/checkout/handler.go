package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"nochex-be/internal/auth"
	"nochex-be/internal/logger"
	"nochex-be/internal/order"
	"nochex-be/internal/payment"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderReader interface {
	GetOrder(ctx context.Context, id uint) (*order.Order, error)
}

// Handler serves the redirect form that hands the buyer over to Nochex.
type Handler struct {
	builder *payment.RequestBuilder
	orders  OrderReader
}

func NewHandler(builder *payment.RequestBuilder, orders OrderReader) *Handler {
	return &Handler{builder: builder, orders: orders}
}

type fieldsResponse struct {
	Method      string          `json:"method"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Action      string          `json:"action"`
	Fields      []payment.Field `json:"fields"`
	Items       []payment.Item  `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var formPage = template.Must(template.New("nochex").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body onload="document.forms[0].submit()">
<p>Thank you for your order. You are now being redirected to {{.Title}} to make payment.</p>
<form action="{{.Action}}" method="post">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Pay via {{.Title}}</button></noscript>
</form>
</body>
</html>
`))

// FormHandler renders an auto-submitting HTML form posting to the gateway.
func (h *Handler) FormHandler(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.build(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := struct {
		Title  string
		Action string
		Fields []payment.Field
	}{h.title(), req.Action, req.Fields}
	if err := formPage.Execute(w, data); err != nil {
		logger.FromCtx(r.Context()).Error("failed to render nochex form", zap.Error(err))
	}
}

// FieldsHandler returns the same request as JSON for storefronts that render
// the form themselves.
func (h *Handler) FieldsHandler(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.build(r)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	settings := h.builder.Settings()
	writeJSON(w, http.StatusOK, fieldsResponse{
		Method:      payment.MethodID,
		Title:       h.title(),
		Description: settings.Description,
		Action:      req.Action,
		Fields:      req.Fields,
		Items:       req.Items,
	})
}

var (
	errForbidden   = errors.New("token does not grant access to this order")
	errUnavailable = errors.New("payment method unavailable")
	errNotPayable  = errors.New("order is not awaiting payment")
	errInternal    = errors.New("payment request could not be built")
)

func (h *Handler) build(r *http.Request) (*payment.OutboundRequest, int, error) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	id, err := order.ParseID(chi.URLParam(r, "orderID"))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	claims, ok := auth.ClaimsFrom(ctx)
	if !ok || claims.OrderID != id {
		log.Warn("checkout token does not match order", zap.Uint("order_id", id))
		return nil, http.StatusForbidden, errForbidden
	}

	if !h.builder.Settings().Enabled {
		return nil, http.StatusNotFound, errUnavailable
	}

	o, err := h.orders.GetOrder(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		return nil, http.StatusNotFound, err
	}
	if err != nil {
		log.Error("failed to load order for checkout", zap.Uint("order_id", id), zap.Error(err))
		return nil, http.StatusInternalServerError, errInternal
	}

	if o.Status != order.StatusPending {
		return nil, http.StatusConflict, errNotPayable
	}

	req, err := h.builder.Build(ctx, o)
	var cfgErr *payment.ConfigurationError
	switch {
	case err == nil:
		return req, http.StatusOK, nil
	case errors.Is(err, payment.ErrMethodDisabled):
		return nil, http.StatusNotFound, errUnavailable
	case errors.As(err, &cfgErr):
		log.Error("nochex is not configured", zap.String("setting", cfgErr.Setting))
		return nil, http.StatusInternalServerError, errInternal
	default:
		log.Error("failed to build nochex request", zap.Error(err))
		return nil, http.StatusInternalServerError, errInternal
	}
}

func (h *Handler) title() string {
	if t := h.builder.Settings().Title; t != "" {
		return t
	}
	return "Nochex"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
