package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/google/uuid"
)

const (
	maxRegisterBodyBytes = 10 << 20
	maxFormMemoryBytes   = 1 << 20

	registerSuccessMessage = "Team Registered Successfully"
)

type Participant struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	RegNo  string `json:"reg"`
}

type Submission struct {
	Team    string        `json:"team"`
	Leader  *Participant  `json:"leader"`
	Members []Participant `json:"members"`
	Txn     string        `json:"txn"`
}

func apiParticipantToParticipant(p Participant) registration.Participant {
	return registration.Participant{
		Name:   p.Name,
		Email:  p.Email,
		Mobile: p.Mobile,
		RegNo:  p.RegNo,
	}
}

func apiSubmissionToSubmission(s Submission) (registration.Submission, error) {
	if s.Leader == nil {
		return registration.Submission{}, errors.New("leader is missing")
	}
	if s.Members == nil {
		return registration.Submission{}, errors.New("members is missing")
	}

	members := make([]registration.Participant, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, apiParticipantToParticipant(m))
	}

	return registration.Submission{
		TeamName:      s.Team,
		Leader:        apiParticipantToParticipant(*s.Leader),
		Members:       members,
		TransactionID: s.Txn,
	}, nil
}

func (a *API) PostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := getLoggerFromCtx(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxRegisterBodyBytes)
	if err := r.ParseMultipartForm(maxFormMemoryBytes); err != nil {
		logger.Warn("Invalid multipart body for registration", slog.String("error", err.Error()))
		writeText(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	data := r.FormValue("data")
	if data == "" {
		logger.Warn("Missing data field for registration")
		writeText(w, http.StatusBadRequest, "Missing registration data")
		return
	}

	var apiSub Submission
	if err := json.Unmarshal([]byte(data), &apiSub); err != nil {
		logger.Warn("Invalid JSON for registration", slog.String("error", err.Error()))
		writeText(w, http.StatusBadRequest, "Invalid registration data")
		return
	}

	sub, err := apiSubmissionToSubmission(apiSub)
	if err != nil {
		logger.Warn("Invalid body for registration", slog.String("error", err.Error()))
		writeText(w, http.StatusBadRequest, "Invalid registration data")
		return
	}

	screenshot, closeScreenshot, err := screenshotFromForm(r)
	if err != nil {
		logger.Warn("Invalid screenshot for registration", slog.String("error", err.Error()))
		writeText(w, http.StatusBadRequest, "Invalid screenshot")
		return
	}
	defer closeScreenshot()

	reg, err := a.registrar.Register(ctx, sub, screenshot)
	if err != nil {
		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) && registrationErr.Reason == registration.REASON_TEAM_SIZE_NOT_ALLOWED {
			logger.Warn("Team size not allowed", slog.String("error", err.Error()), slog.Int("members", len(sub.Members)))
			writeText(w, http.StatusBadRequest, registrationErr.Message)
			return
		}

		// The team is on record; the ticket goes out on a later retry.
		if reg.ID != uuid.Nil {
			logger.Warn("Registered without delivering ticket", slog.String("error", err.Error()), slog.String("registration-id", reg.ID.String()))
			writeJSON(w, r, http.StatusOK, messageResponse{Message: registerSuccessMessage})
			return
		}

		logger.Error("Error trying to register", slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	logger.Info("Team registered", slog.String("registration-id", reg.ID.String()), slog.String("team", reg.TeamName))
	writeJSON(w, r, http.StatusOK, messageResponse{Message: registerSuccessMessage})
}

func screenshotFromForm(r *http.Request) (*registration.Screenshot, func(), error) {
	file, header, err := r.FormFile("screenshot")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to read screenshot: %w", err)
	}

	return &registration.Screenshot{
		Filename:    header.Filename,
		ContentType: screenshotContentType(header),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func screenshotContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
