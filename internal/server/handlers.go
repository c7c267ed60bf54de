// Package server exposes the HTTP surface: building payment field sets and
// receiving gateway notifications.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gateway-pay/internal/common"
	"github.com/noah-isme/gateway-pay/internal/gateway"
	"github.com/noah-isme/gateway-pay/internal/money"
	"github.com/noah-isme/gateway-pay/internal/obs"
)

// Handler routes payment and notification requests to the configured gateway
// adapters.
type Handler struct {
	Gateways map[string]gateway.Gateway
	Log      zerolog.Logger
}

// paymentScoped lets an adapter produce a per-payment copy of itself.
type paymentScoped interface {
	WithPayment(amount decimal.Decimal, orderID string) gateway.Gateway
}

// Fields builds the signed field set the caller renders as a hidden-field
// form posting to the gateway. An "amount" form value scopes the configured
// adapter to that payment; "orderId" overrides the order reference.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	gw, ok := h.lookup(r)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "GATEWAY_NOT_SUPPORTED", "unknown gateway", nil)
		return
	}
	if raw := strings.TrimSpace(r.FormValue("amount")); raw != "" {
		scoped, ok := gw.(paymentScoped)
		if !ok {
			common.JSONError(w, http.StatusBadRequest, "INVALID_AMOUNT", "gateway does not accept per-payment amounts", nil)
			return
		}
		amount, err := money.ParseAmount(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_AMOUNT", "unreadable amount", nil)
			return
		}
		gw = scoped.WithPayment(amount, strings.TrimSpace(r.FormValue("orderId")))
	}
	fields, err := gw.Fields()
	if err != nil {
		h.countBuild(gw.Name(), "error")
		h.renderVerifyError(w, err)
		return
	}
	h.countBuild(gw.Name(), "success")
	common.JSON(w, http.StatusOK, map[string]any{
		"payUrl": gw.PayURL(),
		"fields": fields,
	})
}

// Notify verifies an inbound gateway notification. The payload defaults to
// the ambient form body.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	gw, ok := h.lookup(r)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "GATEWAY_NOT_SUPPORTED", "unknown gateway", nil)
		return
	}
	ctx, span := otel.Tracer("server.Handler").Start(r.Context(), "Handler.Notify")
	defer span.End()
	span.SetAttributes(attribute.String("gateway", gw.Name()))

	payload, err := gateway.PayloadFromForm(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}

	start := time.Now()
	result, err := gw.Verify(ctx, payload)
	if obs.NotificationDuration != nil {
		obs.NotificationDuration.WithLabelValues(gw.Name()).
			Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		code := gateway.CodeOf(err)
		h.countNotification(gw.Name(), strings.ToLower(string(code)))
		h.Log.Warn().
			Str("gateway", gw.Name()).
			Str("code", string(code)).
			Err(err).
			Msg("notification rejected")
		span.RecordError(err)
		h.renderVerifyError(w, err)
		return
	}

	h.countNotification(gw.Name(), string(result.Status))
	h.Log.Info().
		Str("gateway", gw.Name()).
		Str("status", string(result.Status)).
		Str("txn_id", result.TxnID).
		Str("amount", result.Amount.String()).
		Str("currency", result.Currency).
		Msg("notification verified")

	common.JSON(w, http.StatusOK, map[string]any{
		"status":   result.Status,
		"refunded": result.Refunded(),
		"amount":   result.Amount.String(),
		"currency": result.Currency,
		"fee":      result.Fee.String(),
		"txnId":    result.TxnID,
	})
}

func (h *Handler) lookup(r *http.Request) (gateway.Gateway, bool) {
	name := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "gateway")))
	gw, ok := h.Gateways[name]
	return gw, ok
}

func (h *Handler) countBuild(gatewayName, result string) {
	if obs.FieldBuildTotal != nil {
		obs.FieldBuildTotal.WithLabelValues(gatewayName, result).Inc()
	}
}

func (h *Handler) countNotification(gatewayName, result string) {
	if obs.NotificationTotal != nil {
		obs.NotificationTotal.WithLabelValues(gatewayName, result).Inc()
	}
}

func (h *Handler) renderVerifyError(w http.ResponseWriter, err error) {
	var ve *gateway.VerifyError
	if !errors.As(err, &ve) {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	common.JSONError(w, httpStatusFor(ve.Code), string(ve.Code), ve.Message, ve.Details)
}

func httpStatusFor(code gateway.Code) int {
	switch code {
	case gateway.CodeMerchantMismatch, gateway.CodeSignatureMismatch, gateway.CodeGatewayRejected:
		return http.StatusUnauthorized
	case gateway.CodeGatewayDenied:
		return http.StatusPaymentRequired
	case gateway.CodeDuplicateTransaction:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
