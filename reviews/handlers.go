package reviews

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"pawmart/apperr"
	"pawmart/db"
	"pawmart/mq"
	"pawmart/ratings"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore = NewStore(db.ReviewsCollection, ratings.Default(), mq.NewNotifier())
	})
	return defaultStore
}

// POST /api/reviews/:businessid
func AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid review data", http.StatusBadRequest)
		return
	}

	review, err := Default().Create(ctx, userID, ps.ByName("businessid"), payload.Rating, payload.Comment)
	if err != nil {
		log.Println("AddReview error:", err)
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, review)
}

// PUT /api/reviews/:businessid/:reviewid
func EditReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Rating  *int    `json:"rating,omitempty"`
		Comment *string `json:"comment,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid update data", http.StatusBadRequest)
		return
	}

	review, err := Default().Update(ctx, ps.ByName("reviewid"), userID, payload.Rating, payload.Comment)
	if err != nil {
		log.Println("EditReview error:", err)
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, review)
}

// POST /api/reviews/:businessid/:reviewid/respond
func RespondToReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	businessUser := utils.GetUserIDFromRequest(r)
	if businessUser == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid response data", http.StatusBadRequest)
		return
	}

	review, err := Default().AttachResponse(ctx, ps.ByName("reviewid"), businessUser, payload.Text)
	if err != nil {
		log.Println("RespondToReview error:", err)
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, review)
}

// GET /api/reviews/:businessid/:reviewid
func GetReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	review, err := Default().GetByID(ctx, ps.ByName("reviewid"))
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, review)
}

// GET /api/reviews/:businessid
func GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	skip, limit := utils.ParsePagination(r, 10, 100)
	sort := utils.ParseSort(r.URL.Query().Get("sort"), nil, map[string]bson.D{
		"newest": {{Key: "createdAt", Value: -1}},
		"oldest": {{Key: "createdAt", Value: 1}},
		"rating": {{Key: "rating", Value: -1}},
	})

	reviews, err := Default().ListForBusiness(ctx, ps.ByName("businessid"), sort, skip, limit)
	if err != nil {
		log.Println("GetReviews error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "reviews": reviews})
}
