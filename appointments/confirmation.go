package appointments

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"pawmart/apperr"
	"pawmart/globals"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// DownloadConfirmation renders a PDF booking confirmation with the signed
// check-in QR embedded.
func DownloadConfirmation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	role, _ := r.Context().Value(globals.RoleKey).(string)

	appt, err := Default().GetByID(ctx, ps.ByName("appointmentid"))
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	if appt.UserID != userID && role != globals.RoleBusiness {
		utils.RespondWithError(w, http.StatusForbidden, "Not a party to this appointment")
		return
	}

	qrPNG, err := qrcode.Encode(CheckInPayload(appt.AppointmentID, appt.BookingID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Appointment Confirmation")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Booking ID: %s", appt.BookingID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Scheduled: %s", appt.Scheduled.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", appt.Status))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(120, 8, "Service")
	pdf.Cell(35, 8, "Price")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	for _, line := range appt.LineItems {
		pdf.Cell(120, 8, line.Name)
		pdf.Cell(35, 8, fmt.Sprintf("%.2f", line.Price))
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.Cell(120, 8, "Tax")
	pdf.Cell(35, 8, fmt.Sprintf("%.2f", appt.Tax))
	pdf.Ln(8)
	if appt.Discount > 0 {
		pdf.Cell(120, 8, fmt.Sprintf("Discount (%s)", appt.CouponCode))
		pdf.Cell(35, 8, fmt.Sprintf("-%.2f", appt.Discount))
		pdf.Ln(8)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(120, 8, "Total")
	pdf.Cell(35, 8, fmt.Sprintf("%.2f", appt.Total))

	// QR in the top right corner
	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=confirmation-"+appt.BookingID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
