package coupons

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pawmart/apperr"
	"pawmart/db"
	"pawmart/globals"
	"pawmart/models"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"
)

// ValidateCoupon previews the discount a code would grant on a subtotal.
func ValidateCoupon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var payload struct {
		Code     string  `json:"code"`
		Subtotal float64 `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	discount, err := Default().Validate(ctx, payload.Code, payload.Subtotal)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"code": strings.ToUpper(strings.TrimSpace(payload.Code)), "discount": discount})
}

// CreateCoupon registers a new coupon code. Restricted to business accounts.
func CreateCoupon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if utils.GetRoleFromRequest(r) != globals.RoleBusiness {
		utils.RespondWithError(w, http.StatusForbidden, "Business account required")
		return
	}

	var coupon models.Coupon
	if err := json.NewDecoder(r.Body).Decode(&coupon); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	if coupon.Code == "" || coupon.Discount <= 0 || coupon.Discount > 100 {
		utils.RespondWithError(w, http.StatusBadRequest, "Coupon needs a code and a discount between 0 and 100")
		return
	}

	if _, err := db.CouponCollection.InsertOne(ctx, coupon); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Coupon code already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create coupon")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, coupon)
}
