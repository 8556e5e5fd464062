package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/International-Combat-Archery-Alliance/team-tickets/export"
	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
)

func (a *API) GetDownload(w http.ResponseWriter, r *http.Request) {
	a.serveReport(w, r, export.AttendanceReport, registration.IsScanned)
}

func (a *API) GetDownloadRegistrations(w http.ResponseWriter, r *http.Request) {
	a.serveReport(w, r, export.RegistrationsReport, nil)
}

func (a *API) isAdmin(r *http.Request) bool {
	return a.adminEmail != "" && r.URL.Query().Get("email") == a.adminEmail
}

// serveReport renders the whole workbook before writing, so a failure can
// still be answered with a 500.
func (a *API) serveReport(w http.ResponseWriter, r *http.Request, report export.Report, keep func(registration.Registration) bool) {
	ctx := r.Context()
	logger := getLoggerFromCtx(ctx)

	if !a.isAdmin(r) {
		logger.Warn("Non-admin tried to export", slog.String("report", report.FileName))
		writeText(w, http.StatusForbidden, "Access Denied")
		return
	}

	regs, err := a.db.GetAllRegistrations(ctx)
	if err != nil {
		logger.Error("Failed to get registrations for export", slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "Failed to export registrations")
		return
	}

	if keep != nil {
		regs = registration.Filter(regs, keep)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, report, regs); err != nil {
		logger.Error("Failed to write export", slog.String("error", err.Error()), slog.String("report", report.FileName))
		writeText(w, http.StatusInternalServerError, "Failed to export registrations")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+report.FileName)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("Failed to send export", slog.String("error", err.Error()))
	}
}
