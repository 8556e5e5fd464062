package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a full team", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", 4)), nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp messageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Team Registered Successfully", resp.Message)

		regs, err := s.db.GetAllRegistrations(ctx)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, "Byte Busters", regs[0].TeamName)
		assert.Equal(t, "leader@example.com", regs[0].Leader.Email)
		assert.Len(t, regs[0].Members, 4)
		assert.Equal(t, "TXN-Byte Busters", regs[0].TransactionID)
		assert.False(t, regs[0].Scanned)
		assert.Equal(t, registration.DELIVERY_DELIVERED, regs[0].Delivery)

		sent := s.sender.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, []string{"leader@example.com"}, sent[0].ToAddresses)
		assert.Contains(t, sent[0].TextBody, "/scan?id="+regs[0].ID.String())
	})

	t.Run("wrong member count", func(t *testing.T) {
		for _, count := range []int{0, 3, 5} {
			s := newTestServer(t)

			rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", count)), nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Team must have exactly 5 members", rec.Body.String())

			regs, err := s.db.GetAllRegistrations(ctx)
			require.NoError(t, err)
			assert.Empty(t, regs)
			assert.Empty(t, s.sender.Sent())
		}
	})

	t.Run("stores the screenshot", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", 4)), &formFile{
			name:        "payment.PNG",
			contentType: "image/png",
			body:        []byte("png bytes"),
		}))
		require.Equal(t, http.StatusOK, rec.Code)

		regs, err := s.db.GetAllRegistrations(ctx)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		require.NotEmpty(t, regs[0].ScreenshotRef)
		assert.Regexp(t, `^\d+-[0-9a-f-]{36}\.png$`, regs[0].ScreenshotRef)

		obj, err := s.uploader.Open(ctx, regs[0].ScreenshotRef)
		require.NoError(t, err)
		defer obj.Body.Close()
		body, err := io.ReadAll(obj.Body)
		require.NoError(t, err)
		assert.Equal(t, "png bytes", string(body))
	})

	t.Run("rejected team leaves no screenshot behind", func(t *testing.T) {
		s := newTestServer(t)
		var uploaded bool
		s.api.registrar = &mockRegistrar{
			RegisterFunc: func(ctx context.Context, sub registration.Submission, screenshot *registration.Screenshot) (registration.Registration, error) {
				uploaded = screenshot != nil
				return registration.Registration{}, registration.NewTeamSizeNotAllowedError(len(sub.Members), 4)
			},
		}

		rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", 2)), &formFile{
			name: "payment.png", contentType: "image/png", body: []byte("png"),
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, uploaded)
	})

	badRequests := map[string]string{
		"missing data":     "",
		"malformed json":   "{not json",
		"missing leader":   `{"team":"t","members":[],"txn":"x"}`,
		"missing members":  `{"team":"t","leader":{"name":"l"},"txn":"x"}`,
		"members not list": `{"team":"t","leader":{"name":"l"},"members":"nope","txn":"x"}`,
	}
	for name, data := range badRequests {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(newRegisterRequest(t, data, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			regs, err := s.db.GetAllRegistrations(ctx)
			require.NoError(t, err)
			assert.Empty(t, regs)
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		s := newTestServer(t)

		req := newRegisterRequest(t, "", nil)
		req.Header.Set("Content-Type", "application/json")
		rec := s.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("email failure still registers", func(t *testing.T) {
		s := newTestServer(t)
		s.sender.SendEmailFunc = func(ctx context.Context, e email.Email) error {
			return errors.New("smtp down")
		}

		rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", 4)), nil))
		require.Equal(t, http.StatusOK, rec.Code)

		pending, err := s.db.GetPendingDeliveries(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, 1, pending[0].DeliveryAttempts)
	})

	t.Run("store failure", func(t *testing.T) {
		s := newTestServer(t)
		s.api.registrar = &mockRegistrar{
			RegisterFunc: func(ctx context.Context, sub registration.Submission, screenshot *registration.Screenshot) (registration.Registration, error) {
				return registration.Registration{}, registration.NewFailedToWriteError("boom", errors.New("db down"))
			},
		}

		rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", 4)), nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to register", rec.Body.String())
	})

	t.Run("stored but status not saved", func(t *testing.T) {
		s := newTestServer(t)
		s.api.registrar = &mockRegistrar{
			RegisterFunc: func(ctx context.Context, sub registration.Submission, screenshot *registration.Screenshot) (registration.Registration, error) {
				return registration.Registration{ID: uuid.New()}, registration.NewFailedToWriteError("boom", errors.New("db down"))
			},
		}

		rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Byte Busters", 4)), nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("registrations get distinct ids", func(t *testing.T) {
		s := newTestServer(t)

		for range 3 {
			rec := s.do(newRegisterRequest(t, mustJSON(t, submission("Same Team", 4)), nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		regs, err := s.db.GetAllRegistrations(ctx)
		require.NoError(t, err)
		require.Len(t, regs, 3)
		seen := map[uuid.UUID]bool{}
		for _, reg := range regs {
			assert.False(t, seen[reg.ID])
			seen[reg.ID] = true
		}
	})
}
