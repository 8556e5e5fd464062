package api

import (
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
)

var scanMessages = map[registration.ScanResult]string{
	registration.SCAN_INVALID:         "Invalid QR code.",
	registration.SCAN_MARKED:          "Attendance marked! Welcome.",
	registration.SCAN_ALREADY_SCANNED: "Already scanned!",
}

func (a *API) GetScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := getLoggerFromCtx(ctx)

	id := r.URL.Query().Get("id")

	result, err := registration.Scan(ctx, a.db, id, a.now())
	if err != nil {
		logger.Error("Failed to mark attendance", slog.String("error", err.Error()), slog.String("id", id))
		writeText(w, http.StatusInternalServerError, "Failed to mark attendance")
		return
	}

	logger.Info("Scanned ticket", slog.String("id", id), slog.String("result", result.String()))
	writeText(w, http.StatusOK, scanMessages[result])
}
