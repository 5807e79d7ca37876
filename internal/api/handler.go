package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/billing-gateway/internal/billing"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
	"github.com/vnmchuo/billing-gateway/pkg/ratelimit"
)

const dateLayout = "2006-01-02"

type CostCalculator interface {
	CalculateCost(ctx context.Context, accountID string, start, end time.Time) (decimal.Decimal, error)
}

type Handler struct {
	svc     CostCalculator
	limiter *ratelimit.Limiter
	tracer  trace.Tracer
}

func NewHandler(svc CostCalculator, limiter *ratelimit.Limiter, tracer trace.Tracer) *Handler {
	return &Handler{
		svc:     svc,
		limiter: limiter,
		tracer:  tracer,
	}
}

// HandleCost serves GET /v1/accounts/{id}/cost?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) HandleCost(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), accountID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rate limiter unavailable")
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "cost query rate limit exceeded")
			return
		}
	}

	ctx, span := h.tracer.Start(r.Context(), "billing.calculate_cost")
	defer span.End()
	span.SetAttributes(
		attribute.String("billing.account_id", accountID),
		attribute.String("billing.from", from.Format(dateLayout)),
		attribute.String("billing.to", to.Format(dateLayout)),
	)

	total, err := h.svc.CalculateCost(ctx, accountID, from, to)
	if err != nil {
		span.RecordError(err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	span.SetAttributes(attribute.String("billing.total_dollars", total.String()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":            uuid.New().String(),
		"account_id":    accountID,
		"from":          from.Format(dateLayout),
		"to":            to.Format(dateLayout),
		"total_dollars": total.String(),
	})
}

// statusFor maps the billing error taxonomy onto HTTP statuses: caller
// mistakes are 4xx, everything upstream or internal is 502.
func statusFor(err error) int {
	var invalidRange *billing.InvalidDateRangeError
	if errors.As(err, &invalidRange) {
		return http.StatusBadRequest
	}
	if errors.Is(err, tariff.ErrAccountNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
