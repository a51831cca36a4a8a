package ratings

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"pawmart/apperr"
	"pawmart/db"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
)

var (
	defaultOnce sync.Once
	defaultAgg  *Aggregator
)

// Default returns the aggregator bound to the live collections.
func Default() *Aggregator {
	defaultOnce.Do(func() {
		defaultAgg = NewAggregator(db.BusinessCollection, db.ReviewsCollection)
	})
	return defaultAgg
}

// GET /api/business/:businessid/ratingstats
func GetRatingStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats, err := Default().Stats(ctx, ps.ByName("businessid"))
	if err != nil {
		log.Println("GetRatingStats error:", err)
		utils.RespondWithError(w, apperr.Status(err), "Failed to load rating stats")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, stats)
}

// POST /api/business/:businessid/ratingstats/recompute
//
// Repair endpoint: rebuilds the counters from the review set.
func RecomputeRatingStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	businessID := ps.ByName("businessid")
	if err := Default().Recompute(ctx, businessID); err != nil {
		log.Println("RecomputeRatingStats error:", err)
		utils.RespondWithError(w, apperr.Status(err), "Failed to recompute rating stats")
		return
	}

	stats, err := Default().Stats(ctx, businessID)
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), "Failed to load rating stats")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}
