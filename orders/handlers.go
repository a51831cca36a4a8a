package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"pawmart/apperr"
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
		defaultStore = NewStore(db.OrderCollection, db.CounterCollection, mq.NewNotifier())
	})
	return defaultStore
}

type cartItemPayload struct {
	ItemId   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// AddToCart merges one line item into the caller's open cart, creating the
// cart if this is their first item.
func AddToCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload cartItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cart, err := Default().AddToCart(ctx, userID, models.OrderItem{
		ItemId:   payload.ItemId,
		ItemName: payload.ItemName,
		Quantity: payload.Quantity,
		Price:    payload.Price,
	})
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// GetCart returns the caller's open cart, or an empty one if none exists.
func GetCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cart, err := Default().Cart(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	if cart == nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"items": []models.OrderItem{}, "subtotal": 0, "total": 0})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// CheckoutOrder converts the caller's cart into a numbered pending order.
func CheckoutOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	orderID := ps.ByName("orderid")

	order, err := Default().GetByID(ctx, orderID)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	if order.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Not your order")
		return
	}

	checked, err := Default().Checkout(ctx, orderID)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, checked)
}

// UpdateOrderStatus advances an order through its fulfillment states.
// Restricted to business accounts.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if utils.GetRoleFromRequest(r) != globals.RoleBusiness {
		utils.RespondWithError(w, http.StatusForbidden, "Business account required")
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := Default().UpdateStatus(ctx, ps.ByName("orderid"), payload.Status)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// GetMyOrders lists the caller's order history.
func GetMyOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

// GetOrder returns one order to its owner or to a business account.
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	role, _ := r.Context().Value(globals.RoleKey).(string)

	order, err := Default().GetByID(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	if order.UserID != userID && role != globals.RoleBusiness {
		utils.RespondWithError(w, http.StatusForbidden, "Not your order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}
