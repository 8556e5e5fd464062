package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/International-Combat-Archery-Alliance/middleware"
	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/International-Combat-Archery-Alliance/team-tickets/storage"
)

type Environment string

const (
	LOCAL Environment = "LOCAL"
	PROD  Environment = "PROD"
)

type DB interface {
	registration.Repository
}

type Registrar interface {
	Register(ctx context.Context, sub registration.Submission, screenshot *registration.Screenshot) (registration.Registration, error)
}

type API struct {
	db          DB
	registrar   Registrar
	uploader    storage.FileUploader
	logger      *slog.Logger
	env         Environment
	adminEmail  string
	corsOrigins []string
	now         func() time.Time
}

func NewAPI(db DB, registrar Registrar, uploader storage.FileUploader, logger *slog.Logger, env Environment, adminEmail string, corsOrigins []string) *API {
	return &API{
		db:          db,
		registrar:   registrar,
		uploader:    uploader,
		logger:      logger,
		env:         env,
		adminEmail:  adminEmail,
		corsOrigins: corsOrigins,
		now:         time.Now,
	}
}

func (a *API) Handler() http.Handler {
	r := http.NewServeMux()

	r.HandleFunc("GET /{$}", a.GetRoot)
	r.HandleFunc("POST /register", a.PostRegister)
	r.HandleFunc("GET /scan", a.GetScan)
	r.HandleFunc("GET /download", a.GetDownload)
	r.HandleFunc("GET /download-registrations", a.GetDownloadRegistrations)
	r.HandleFunc("GET /uploads/{key}", a.GetUpload)

	return middleware.UseMiddlewares(r,
		a.requestIdMiddleware(),
		middleware.AccessLogging(a.logger),
		a.corsMiddleware(),
		middleware.OTELHandler,
	)
}

func (a *API) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "Backend is running!")
}
