package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/discountcodes/discount-server-go/internal/errors"

	"github.com/discountcodes/discount-server-go/internal/httputil"
	"github.com/discountcodes/discount-server-go/internal/model"
)

// CodeReader is the read-only side of service.DiscountService.
type CodeReader interface {
	Stats(ctx context.Context) (*model.CodeStats, error)
	Lookup(ctx context.Context, code string) (*model.DiscountCode, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusHandler struct {
	codes CodeReader
	db    Pinger
}

func NewStatusHandler(codes CodeReader, db Pinger) *StatusHandler {
	return &StatusHandler{codes: codes, db: db}
}

// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	state := "ok"
	if err := h.db.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health check: database unreachable")
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":    state,
		"timestamp": time.Now().UnixMilli(),
	})
}

// GET /stats
func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.codes.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count codes")
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /codes/{code}
// Reports a code's state without redeeming it.
func (h *StatusHandler) Code(w http.ResponseWriter, r *http.Request) {
	dc, err := h.codes.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if !apperrors.IsClientFacing(err) {
			log.Error().Err(err).Msg("failed to look up code")
		}
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dc)
}
