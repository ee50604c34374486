// Package payment builds PayPay QR links pointing at the frontend payment page.
package payment

import (
	"errors"
	"strings"
)

const (
	qrEndpoint = "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="
	Provider   = "qrserver.com"
)

var ErrMissingOrderID = errors.New("orderId is required")

type QR struct {
	OrderID    string
	PaymentURL string
	QRURL      string
	Provider   string
}

type Service struct {
	frontendBase string
}

func NewService(frontendBaseURL string) *Service {
	return &Service{frontendBase: strings.TrimRight(frontendBaseURL, "/")}
}

// QR does not check that the order exists; the payment page does.
func (s *Service) QR(orderID string) (*QR, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrMissingOrderID
	}

	paymentURL := s.frontendBase + "/payment/" + escapeComponent(orderID)
	return &QR{
		OrderID:    orderID,
		PaymentURL: paymentURL,
		QRURL:      qrEndpoint + escapeComponent(paymentURL),
		Provider:   Provider,
	}, nil
}

const upperHex = "0123456789ABCDEF"

// escapeComponent percent-encodes every UTF-8 byte outside
// A-Z a-z 0-9 - _ . ! ~ * ' ( ) so links match what browser clients build.
func escapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
