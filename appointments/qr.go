package appointments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pawmart/apperr"
	"pawmart/globals"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
)

// CheckInPayload returns a signed payload string:
// appointmentID|bookingID|timestamp|signature
func CheckInPayload(appointmentID, bookingID string) string {
	timestamp := time.Now().Unix()
	data := fmt.Sprintf("%s|%s|%d", appointmentID, bookingID, timestamp)

	h := hmac.New(sha256.New, []byte(globals.QrSecret))
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

// VerifyCheckInPayload recomputes the signature over the payload body.
func VerifyCheckInPayload(payload string) bool {
	idx := strings.LastIndex(payload, "|")
	if idx < 0 {
		return false
	}
	data, sig := payload[:idx], payload[idx+1:]

	h := hmac.New(sha256.New, []byte(globals.QrSecret))
	h.Write([]byte(data))
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// CheckInQR serves a QR code the business scans at the start of a confirmed
// appointment.
func CheckInQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
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

	png, err := qrcode.Encode(CheckInPayload(appt.AppointmentID, appt.BookingID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
