package models

import "time"

// Business carries the running rating counters maintained by the rating
// aggregator. RatingSum and ReviewCount are only ever moved by atomic
// increments; the rounded average is derived from them.
type Business struct {
	BusinessID  string    `json:"businessId" bson:"businessId"`
	Name        string    `json:"name,omitempty" bson:"name,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty" bson:"ownerId,omitempty"`
	RatingSum   int64     `json:"-" bson:"ratingSum"`
	ReviewCount int64     `json:"totalReviews" bson:"reviewCount"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// RatingStats is the aggregate exposed on the business entity.
type RatingStats struct {
	BusinessID    string  `json:"businessId"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int64   `json:"totalReviews"`
}
