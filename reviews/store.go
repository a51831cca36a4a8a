package reviews

import (
	"context"
	"fmt"
	"time"

	"pawmart/apperr"
	"pawmart/models"
	"pawmart/mq"
	"pawmart/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the slice of *mongo.Collection the review store uses.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Aggregator keeps the per-business rating counters in step with the review
// set. Every rating mutation applies its delta before the store returns, so
// the caller always observes an aggregate consistent with its own write.
type Aggregator interface {
	ApplyDelta(ctx context.Context, businessID string, sumDelta, countDelta int64) error
}

// Store persists reviews and business responses.
type Store struct {
	reviews Collection
	agg     Aggregator
	notify  mq.Notifier
}

func NewStore(reviews Collection, agg Aggregator, notify mq.Notifier) *Store {
	return &Store{reviews: reviews, agg: agg, notify: notify}
}

// Create validates and persists a review, then moves the business aggregate
// before returning. One review per customer per business; the unique index
// on (businessId, userid) backs that under concurrency.
func (s *Store) Create(ctx context.Context, userID, businessID string, rating int, comment string) (*models.Review, error) {
	if userID == "" || businessID == "" {
		return nil, fmt.Errorf("%w: missing customer or business", apperr.ErrValidation)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", apperr.ErrValidation)
	}
	if comment == "" {
		return nil, fmt.Errorf("%w: comment is required", apperr.ErrValidation)
	}

	now := time.Now()
	review := &models.Review{
		ReviewID:   utils.GenerateRandomString(16),
		BusinessID: businessID,
		UserID:     userID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.reviews.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: customer already reviewed this business", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}

	if err := s.agg.ApplyDelta(ctx, businessID, int64(rating), 1); err != nil {
		return nil, fmt.Errorf("review %s persisted but aggregate update failed: %w", review.ReviewID, err)
	}

	s.notify.Emit(ctx, mq.Event{
		Name:       "review-added",
		Recipient:  businessID,
		EntityType: "review",
		EntityId:   review.ReviewID,
	})

	return review, nil
}

// Update lets the original author change rating or text. The write is a
// compare-and-set on the current rating so a concurrent edit can't smuggle a
// wrong delta into the aggregate.
func (s *Store) Update(ctx context.Context, reviewID, actingUser string, rating *int, comment *string) (*models.Review, error) {
	if rating == nil && comment == nil {
		return nil, fmt.Errorf("%w: nothing to update", apperr.ErrValidation)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", apperr.ErrValidation)
	}
	if comment != nil && *comment == "" {
		return nil, fmt.Errorf("%w: comment must not be empty", apperr.ErrValidation)
	}

	current, err := s.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if current.UserID != actingUser {
		return nil, fmt.Errorf("%w: only the author may edit a review", apperr.ErrUnauthorized)
	}

	set := bson.M{"updatedAt": time.Now()}
	if rating != nil {
		set["rating"] = *rating
	}
	if comment != nil {
		set["comment"] = *comment
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Review
	err = s.reviews.FindOneAndUpdate(ctx,
		bson.M{"reviewid": reviewID, "rating": current.Rating},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: review changed concurrently, retry", apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update review %s: %w", reviewID, err)
	}

	if rating != nil && *rating != current.Rating {
		delta := int64(*rating - current.Rating)
		if err := s.agg.ApplyDelta(ctx, current.BusinessID, delta, 0); err != nil {
			return nil, fmt.Errorf("review %s updated but aggregate update failed: %w", reviewID, err)
		}
	}

	s.notify.Emit(ctx, mq.Event{
		Name:       "review-edited",
		Recipient:  current.BusinessID,
		EntityType: "review",
		EntityId:   reviewID,
	})

	return &updated, nil
}

// AttachResponse attaches the reviewed business's single reply. The
// compare-and-set on "no response yet" makes a second attempt lose cleanly
// instead of overwriting the first.
func (s *Store) AttachResponse(ctx context.Context, reviewID, actingBusiness, text string) (*models.Review, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: response text is required", apperr.ErrValidation)
	}

	current, err := s.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if current.BusinessID != actingBusiness {
		return nil, fmt.Errorf("%w: only the reviewed business may respond", apperr.ErrUnauthorized)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Review
	err = s.reviews.FindOneAndUpdate(ctx,
		bson.M{"reviewid": reviewID, "response": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			"response":  models.BusinessResponse{Text: text, RespondedAt: time.Now()},
			"updatedAt": time.Now(),
		}},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrAlreadyResponded
	}
	if err != nil {
		return nil, fmt.Errorf("attach response to %s: %w", reviewID, err)
	}

	s.notify.Emit(ctx, mq.Event{
		Name:       "review-response-added",
		Recipient:  current.UserID,
		EntityType: "review",
		EntityId:   reviewID,
	})

	return &updated, nil
}

// AddPhotos appends uploaded photo paths; author only.
func (s *Store) AddPhotos(ctx context.Context, reviewID, actingUser string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: no photos given", apperr.ErrValidation)
	}

	current, err := s.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if current.UserID != actingUser {
		return fmt.Errorf("%w: only the author may add photos", apperr.ErrUnauthorized)
	}

	_, err = s.reviews.UpdateOne(ctx,
		bson.M{"reviewid": reviewID},
		bson.M{
			"$push": bson.M{"photos": bson.M{"$each": paths}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("add photos to %s: %w", reviewID, err)
	}
	return nil
}

// GetByID returns a single review.
func (s *Store) GetByID(ctx context.Context, reviewID string) (*models.Review, error) {
	var review models.Review
	err := s.reviews.FindOne(ctx, bson.M{"reviewid": reviewID}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: review %s", apperr.ErrNotFound, reviewID)
	}
	if err != nil {
		return nil, fmt.Errorf("load review %s: %w", reviewID, err)
	}
	return &review, nil
}

// ListForBusiness returns a page of reviews in the given sort order.
func (s *Store) ListForBusiness(ctx context.Context, businessID string, sort bson.D, skip, limit int64) ([]models.Review, error) {
	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}
	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(sort)

	cursor, err := s.reviews.Find(ctx, bson.M{"businessId": businessID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reviews for %s: %w", businessID, err)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}
