package ratings

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"pawmart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the slice of *mongo.Collection the aggregator uses.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// Aggregator is the sole writer of per-business rating counters. The hot
// path moves ratingSum/reviewCount by a single atomic $inc, so two
// concurrent writers can never interleave into a stale average the way a
// read-modify-write of the average itself would.
type Aggregator struct {
	businesses Collection
	reviews    Collection

	mu    sync.Mutex
	locks map[string]*sync.Mutex // serializes full recomputes per business
}

func NewAggregator(businesses, reviews Collection) *Aggregator {
	return &Aggregator{
		businesses: businesses,
		reviews:    reviews,
		locks:      make(map[string]*sync.Mutex),
	}
}

// ApplyDelta shifts the running sum/count for a business in one atomic
// document update. The upsert creates the counter document on the first
// review; the equality filter carries businessId into the inserted doc.
func (a *Aggregator) ApplyDelta(ctx context.Context, businessID string, sumDelta, countDelta int64) error {
	_, err := a.businesses.UpdateOne(ctx,
		bson.M{"businessId": businessID},
		bson.M{
			"$inc": bson.M{"ratingSum": sumDelta, "reviewCount": countDelta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("rating delta for %s: %w", businessID, err)
	}
	return nil
}

// Recompute rebuilds the counters from the authoritative review set. It is
// the repair path; concurrent recomputes for the same business serialize on
// a per-business lock while different businesses proceed in parallel.
func (a *Aggregator) Recompute(ctx context.Context, businessID string) error {
	lock := a.businessLock(businessID)
	lock.Lock()
	defer lock.Unlock()

	pipeline := []bson.M{
		{"$match": bson.M{"businessId": businessID}},
		{"$group": bson.M{
			"_id":   "$businessId",
			"sum":   bson.M{"$sum": "$rating"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cursor, err := a.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate reviews for %s: %w", businessID, err)
	}
	defer cursor.Close(ctx)

	var sum, count int64
	if cursor.Next(ctx) {
		var row struct {
			Sum   int64 `bson:"sum"`
			Count int64 `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		sum, count = row.Sum, row.Count
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	_, err = a.businesses.UpdateOne(ctx,
		bson.M{"businessId": businessID},
		bson.M{"$set": bson.M{
			"ratingSum":   sum,
			"reviewCount": count,
			"updatedAt":   time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("write recomputed stats for %s: %w", businessID, err)
	}
	return nil
}

// Stats returns the aggregate as exposed on the business entity. A business
// with no reviews reports average 0, never NaN.
func (a *Aggregator) Stats(ctx context.Context, businessID string) (models.RatingStats, error) {
	stats := models.RatingStats{BusinessID: businessID}

	var biz models.Business
	err := a.businesses.FindOne(ctx, bson.M{"businessId": businessID}).Decode(&biz)
	if err == mongo.ErrNoDocuments {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("load stats for %s: %w", businessID, err)
	}

	stats.TotalReviews = biz.ReviewCount
	stats.AverageRating = Average(biz.RatingSum, biz.ReviewCount)
	return stats, nil
}

// Average is round(sum/count, 2); zero reviews means average 0.
func Average(sum, count int64) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*100) / 100
}

func (a *Aggregator) businessLock(businessID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[businessID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[businessID] = lock
	}
	return lock
}
