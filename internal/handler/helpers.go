package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/echoease/echoease-go/internal/domain"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}
	return
}

// handleServiceError maps domain errors to HTTP responses. Every fatal
// pipeline error lands here and becomes a single human-readable message.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var transcription *domain.ErrTranscription
	var classification *domain.ErrClassification
	var persistence *domain.ErrPersistence
	var circuitOpen *domain.ErrCircuitOpen

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again shortly.")
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, validation.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &unauthorized):
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &transcription):
		logger.Error("transcription oracle failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "We could not transcribe your recording. Please try again.")
	case errors.As(err, &classification):
		logger.Error("extraction oracle failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "We could not understand that. Please try again.")
	case errors.As(err, &persistence):
		logger.Error("store failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Your data could not be saved. Please try again.")
	case errors.As(err, &circuitOpen):
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again shortly.")
	default:
		logger.Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
