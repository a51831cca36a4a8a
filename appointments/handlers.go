package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"pawmart/apperr"
	"pawmart/coupons"
	"pawmart/db"
	"pawmart/globals"
	"pawmart/models"
	"pawmart/mq"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
)

var (
	defaultStore *Store
	storeOnce    sync.Once
)

// Default returns the store bound to the live collections.
func Default() *Store {
	storeOnce.Do(func() {
		defaultStore = NewStore(db.AppointmentCollection, coupons.Default(), mq.NewNotifier(), Broadcast)
	})
	return defaultStore
}

type createPayload struct {
	BusinessID string                       `json:"businessId"`
	ServiceID  string                       `json:"serviceId"`
	PetID      string                       `json:"petId"`
	Scheduled  time.Time                    `json:"scheduled"`
	LineItems  []models.AppointmentLineItem `json:"lineItems"`
	CouponCode string                       `json:"couponCode"`
	Notes      string                       `json:"notes"`
}

// CreateAppointment books a pending appointment for the caller.
func CreateAppointment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.PetID != "" {
		owns, err := ownsPet(ctx, payload.PetID, userID)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to look up pet")
			return
		}
		if !owns {
			utils.RespondWithError(w, http.StatusBadRequest, "Unknown pet")
			return
		}
	}

	appt, err := Default().Create(ctx, userID, CreateRequest{
		BusinessID: payload.BusinessID,
		ServiceID:  payload.ServiceID,
		PetID:      payload.PetID,
		Scheduled:  payload.Scheduled,
		LineItems:  payload.LineItems,
		CouponCode: payload.CouponCode,
		Notes:      payload.Notes,
	})
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, appt)
}

// UpdateAppointmentStatus applies confirm/complete/cancel with role checks
// done by the store.
func UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	role, _ := r.Context().Value(globals.RoleKey).(string)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := Default().UpdateStatus(ctx, ps.ByName("appointmentid"), payload.Status, userID, role)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// GetAppointment returns one appointment to its customer or a business
// account.
func GetAppointment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	utils.RespondWithJSON(w, http.StatusOK, appt)
}

// GetMyAppointments lists the caller's appointments.
func GetMyAppointments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	skip, limit := utils.ParsePagination(r, 10, 100)
	list, err := Default().ListForUser(ctx, userID, skip, limit)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GetBusinessAppointments lists appointments booked at one business.
// Restricted to business accounts.
func GetBusinessAppointments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if utils.GetRoleFromRequest(r) != globals.RoleBusiness {
		utils.RespondWithError(w, http.StatusForbidden, "Business account required")
		return
	}

	skip, limit := utils.ParsePagination(r, 10, 100)
	list, err := Default().ListForBusiness(ctx, ps.ByName("businessid"), skip, limit)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
