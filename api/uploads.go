package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/International-Combat-Archery-Alliance/team-tickets/storage"
)

func (a *API) GetUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := getLoggerFromCtx(ctx)

	key := r.PathValue("key")
	if !storage.ValidKey(key) {
		http.NotFound(w, r)
		return
	}

	obj, err := a.uploader.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.Error("Failed to open upload", slog.String("error", err.Error()), slog.String("key", key))
		writeText(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		logger.Warn("Failed to stream upload", slog.String("error", err.Error()), slog.String("key", key))
	}
}
