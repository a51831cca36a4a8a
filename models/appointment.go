package models

import "time"

// Appointment statuses. pending is the only initial state; completed and
// cancelled are terminal.
const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// AppointmentLineItem is an add-on service with its price captured at
// creation time.
type AppointmentLineItem struct {
	Name  string  `json:"name" bson:"name"`
	Price float64 `json:"price" bson:"price"`
}

// Appointment is a booking between a customer (with a pet) and a business.
// Subtotal, tax, discount and total are computed once at creation and are
// never recomputed by a later status change.
type Appointment struct {
	AppointmentID string                `json:"appointmentId" bson:"appointmentid"`
	BookingID     string                `json:"bookingId" bson:"bookingid"`
	UserID        string                `json:"userId" bson:"userId"`
	BusinessID    string                `json:"businessId" bson:"businessId"`
	ServiceID     string                `json:"serviceId" bson:"serviceId"`
	PetID         string                `json:"petId" bson:"petId"`
	Scheduled     time.Time             `json:"scheduled" bson:"scheduled"`
	LineItems     []AppointmentLineItem `json:"lineItems" bson:"lineItems"`
	Subtotal      float64               `json:"subtotal" bson:"subtotal"`
	Tax           float64               `json:"tax" bson:"tax"`
	Discount      float64               `json:"discount" bson:"discount"`
	Total         float64               `json:"total" bson:"total"`
	CouponCode    string                `json:"couponCode,omitempty" bson:"couponCode,omitempty"`
	Status        string                `json:"status" bson:"status"`
	Notes         string                `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt     time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt" bson:"updatedAt"`
}
