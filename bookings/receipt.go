package bookings

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"wayfare/apperror"
	"wayfare/middleware"
	"wayfare/models"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Receipt renders the booking as a downloadable PDF. The embedded QR code
// carries an HMAC so a scanned receipt can be checked against tampering.
func (h *Handlers) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."), h.Dev)
		return
	}

	booking, err := h.Bookings.FindByID(ctx, ps.ByName("id"))
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "booking"), h.Dev)
		return
	}
	if booking.UserID != principal.ID && principal.Role != models.RoleAdmin {
		apperror.Respond(w, apperror.Forbidden("You do not have permission to perform this action"), h.Dev)
		return
	}

	tourName := booking.TourID
	if tour, err := h.Tours.FindByID(ctx, booking.TourID); err == nil {
		tourName = tour.Name
	}

	pdf, err := h.buildReceiptPDF(booking, principal, tourName)
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+booking.ID+".pdf")
	_, _ = w.Write(pdf)
}

func (h *Handlers) receiptQRPayload(booking *models.Booking, ts int64) string {
	mac := hmac.New(sha256.New, h.Pay.WebhookSecret)
	fmt.Fprintf(mac, "%s|%s|%.2f|%d", booking.ID, booking.UserID, booking.Price, ts)
	sig := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("booking=%s&ts=%d&sig=%s", booking.ID, ts, sig)
}

func (h *Handlers) buildReceiptPDF(booking *models.Booking, user *models.User, tourName string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(h.receiptQRPayload(booking, time.Now().Unix()), qrcode.Medium, 128)
	if err != nil {
		return nil, fmt.Errorf("receipt qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, "Wayfare Booking Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	paidAt := booking.CreatedAt.Format("02 Jan 2006 15:04")
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 10, fmt.Sprintf(
		"Booking: %s\nTour: %s\nBooked by: %s\nPrice: $%.2f\nPaid: %s",
		booking.ID, tourName, user.Name, booking.Price, paidAt,
	), "", "L", false)

	imgOpts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 60, 40, 40, false, imgOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 10, "Scan the code to verify this receipt.", "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
