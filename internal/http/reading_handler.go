package httpapi

import (
	"context"
	"errors"
	"net/http"

	"wisefido-hydration/internal/config"
	"wisefido-hydration/internal/models"
	"wisefido-hydration/internal/service"

	"go.uber.org/zap"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("empty request body")
)

// ReadingProcessor 读数处理（service.HydrationService 实现）
type ReadingProcessor interface {
	HandleReading(ctx context.Context, req *models.ReadingRequest) (*models.Outcome, error)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type notifiedBody struct {
	OK          bool `json:"ok"`
	Notified    bool `json:"notified"`
	GoalML      int  `json:"goal_ml"`
	TargetMLNow int  `json:"target_ml_now"`
	NextSipML   int  `json:"next_sip_ml"`
}

type skippedBody struct {
	OK      bool              `json:"ok"`
	Skipped models.SkipReason `json:"skipped"`
}

// ReadingHandler POST / 读数入口
type ReadingHandler struct {
	processor    ReadingProcessor
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewReadingHandler(processor ReadingProcessor, maxBodyBytes int64, logger *zap.Logger) *ReadingHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 << 10
	}
	return &ReadingHandler{processor: processor, maxBodyBytes: maxBodyBytes, logger: logger}
}

func (h *ReadingHandler) PostReading(w http.ResponseWriter, r *http.Request) {
	var req models.ReadingRequest
	if err := readBodyJSON(r, h.maxBodyBytes, &req); err != nil || !req.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: service.ErrInvalidReading.Error()})
		return
	}

	out, err := h.processor.HandleReading(r.Context(), &req)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidReading):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	case errors.Is(err, config.ErrMissingCredentials):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "missing_config", Detail: err.Error()})
		return
	default:
		h.logger.Error("Failed to handle reading", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Detail: err.Error()})
		return
	}

	if out.Notified && out.Decision != nil {
		writeJSON(w, http.StatusOK, notifiedBody{
			OK:          true,
			Notified:    true,
			GoalML:      out.Decision.GoalML,
			TargetMLNow: out.Decision.TargetMLNow,
			NextSipML:   out.Decision.SipML,
		})
		return
	}
	writeJSON(w, http.StatusOK, skippedBody{OK: true, Skipped: out.Skipped})
}
