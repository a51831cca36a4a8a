package models

import "time"

// Coupon is a percentage discount code validated at appointment creation.
type Coupon struct {
	Code      string    `bson:"code" json:"code"`
	Discount  float64   `bson:"discount" json:"discount"` // % value e.g. 10 means 10%
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	Active    bool      `bson:"active" json:"active"`
}

// Pet is the animal an appointment is booked for.
type Pet struct {
	PetID   string `json:"petId" bson:"petId"`
	OwnerID string `json:"ownerId" bson:"ownerId"`
	Name    string `json:"name" bson:"name"`
	Species string `json:"species,omitempty" bson:"species,omitempty"`
}
