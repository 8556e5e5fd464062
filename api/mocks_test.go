package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/team-tickets/memory"
	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/International-Combat-Archery-Alliance/team-tickets/storage"
	"github.com/stretchr/testify/require"
)

var noopLogger = slog.New(slog.DiscardHandler)

const testAdminEmail = "admin@example.com"

type mockRegistrar struct {
	RegisterFunc func(ctx context.Context, sub registration.Submission, screenshot *registration.Screenshot) (registration.Registration, error)
}

func (m *mockRegistrar) Register(ctx context.Context, sub registration.Submission, screenshot *registration.Screenshot) (registration.Registration, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, sub, screenshot)
	}
	return registration.Registration{}, nil
}

type mockEmailSender struct {
	mu   sync.Mutex
	sent []email.Email

	SendEmailFunc func(ctx context.Context, e email.Email) error
}

func (m *mockEmailSender) SendEmail(ctx context.Context, e email.Email) error {
	if m.SendEmailFunc != nil {
		if err := m.SendEmailFunc(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *mockEmailSender) Sent() []email.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Email(nil), m.sent...)
}

type testServer struct {
	api      *API
	handler  http.Handler
	db       *memory.DB
	sender   *mockEmailSender
	uploader *storage.DiskUploader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := memory.NewDB()
	sender := &mockEmailSender{}
	uploader, err := storage.NewDiskUploader(t.TempDir(), "http://localhost:3000")
	require.NoError(t, err)

	issuer := registration.NewIssuer(db, uploader, sender, registration.IssuerConfig{
		PublicBaseURL: "http://localhost:3000",
		FromAddress:   "tickets@example.com",
		TeamSize:      registration.TeamSizeRule{RequiredMembers: registration.DefaultRequiredMembers},
	})

	a := NewAPI(db, issuer, uploader, noopLogger, LOCAL, testAdminEmail, nil)

	return &testServer{
		api:      a,
		handler:  a.Handler(),
		db:       db,
		sender:   sender,
		uploader: uploader,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func participant(name string) Participant {
	return Participant{
		Name:   name,
		Email:  name + "@example.com",
		Mobile: "9876543210",
		RegNo:  "REG-" + name,
	}
}

func submission(team string, memberCount int) Submission {
	leader := participant("leader")
	members := make([]Participant, 0, memberCount)
	for i := range memberCount {
		members = append(members, participant(string(rune('a'+i))))
	}
	return Submission{
		Team:    team,
		Leader:  &leader,
		Members: members,
		Txn:     "TXN-" + team,
	}
}

type formFile struct {
	name        string
	contentType string
	body        []byte
}

func newRegisterRequest(t *testing.T, data string, screenshot *formFile) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != "" {
		require.NoError(t, mw.WriteField("data", data))
	}
	if screenshot != nil {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="screenshot"; filename="` + screenshot.name + `"`}
		h["Content-Type"] = []string{screenshot.contentType}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(screenshot.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
