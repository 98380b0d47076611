package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxAudioBytes caps one uploaded utterance recording.
const maxAudioBytes = 25 << 20

// ============================================================
// Utterance pipeline
// POST /v1/utterances        { "text": "..." }
// POST /v1/utterances/audio  multipart, field "file"
// ============================================================

func utteranceTextHandler(pipeline *service.Pipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/utterances")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		report, err := pipeline.HandleText(ctx, userID, req.Text)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, report)
	}
}

func utteranceAudioHandler(pipeline *service.Pipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/utterances/audio")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
		if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		// Spool the upload to disk; the transcription client owns and
		// removes the file from here on.
		tmp, err := os.CreateTemp("", "utterance-*"+filepath.Ext(header.Filename))
		if err != nil {
			logger.Error("could not spool audio upload", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not store upload")
			return
		}
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			logger.Error("could not spool audio upload", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not store upload")
			return
		}
		tmp.Close()

		capture := &domain.AudioCapture{
			FilePath: tmp.Name(),
			MimeType: header.Header.Get("Content-Type"),
		}

		report, err := pipeline.HandleAudio(ctx, userID, capture)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, report)
	}
}
