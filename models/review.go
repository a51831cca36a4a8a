package models

import "time"

// BusinessResponse is the single reply a business may attach to a review.
type BusinessResponse struct {
	Text        string    `json:"text" bson:"text"`
	RespondedAt time.Time `json:"respondedAt" bson:"respondedAt"`
}

// Review is a customer's rating of a business. At most one review per
// customer per business, and at most one business response per review.
type Review struct {
	ReviewID   string            `json:"reviewid" bson:"reviewid"`
	BusinessID string            `json:"businessId" bson:"businessId"`
	UserID     string            `json:"userid" bson:"userid"`
	Rating     int               `json:"rating" bson:"rating"` // 1..5
	Comment    string            `json:"comment" bson:"comment"`
	Photos     []string          `json:"photos,omitempty" bson:"photos,omitempty"`
	Response   *BusinessResponse `json:"response,omitempty" bson:"response,omitempty"`
	CreatedAt  time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt" bson:"updatedAt"`
}
