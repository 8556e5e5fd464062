package ticket

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

type Ticket struct {
	ID      uuid.UUID
	ScanURL string
	QRCode  []byte
}

// ScanURL is the link encoded in the QR code; opening it marks attendance.
func ScanURL(publicBaseURL string, id uuid.UUID) string {
	q := url.Values{}
	q.Set("id", id.String())
	return fmt.Sprintf("%s/scan?%s", strings.TrimRight(publicBaseURL, "/"), q.Encode())
}

func New(publicBaseURL string, id uuid.UUID) (Ticket, error) {
	scanURL := ScanURL(publicBaseURL, id)

	png, err := qrcode.Encode(scanURL, qrcode.Medium, qrSize)
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return Ticket{
		ID:      id,
		ScanURL: scanURL,
		QRCode:  png,
	}, nil
}

// DataURL inlines the QR PNG so it can be used directly as an <img> src.
func (t Ticket) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(t.QRCode)
}
