package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/table-order/internal/payment"
)

type QRGenerator interface {
	QR(orderID string) (*payment.QR, error)
}

type PaymentHandler struct {
	qr QRGenerator
}

func NewPaymentHandler(qr QRGenerator) *PaymentHandler {
	return &PaymentHandler{qr: qr}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Get("/paypay/qr/{orderId}", h.handleQR)
}

func (h *PaymentHandler) handleQR(w http.ResponseWriter, r *http.Request) {
	qr, err := h.qr.QR(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to generate PayPay QR code")
		return
	}
	respondWithJSON(w, http.StatusOK, toQRResponse(qr))
}
