package appointments

import (
	"context"
	"fmt"
	"time"

	"pawmart/apperr"
	"pawmart/globals"
	"pawmart/models"
	"pawmart/mq"
	"pawmart/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the slice of *mongo.Collection the appointment store uses.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// CouponValidator resolves a coupon code into a discount amount for a
// given subtotal.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal float64) (float64, error)
}

// taxRate applies to the service subtotal at booking time. The snapshot is
// final: later rate changes never touch existing appointments.
const taxRate = 0.08

const maxBookingAttempts = 5

var appointmentTransitions = map[string][]string{
	models.AppointmentStatusPending:   {models.AppointmentStatusConfirmed, models.AppointmentStatusCancelled},
	models.AppointmentStatusConfirmed: {models.AppointmentStatusCompleted, models.AppointmentStatusCancelled},
}

// CreateRequest carries everything needed to book an appointment.
type CreateRequest struct {
	BusinessID string
	ServiceID  string
	PetID      string
	Scheduled  time.Time
	LineItems  []models.AppointmentLineItem
	CouponCode string
	Notes      string
}

// Store owns the appointment lifecycle. Pricing is computed exactly once at
// creation; status changes are compare-and-set on the status the caller saw.
type Store struct {
	appointments Collection
	coupons      CouponValidator
	notify       mq.Notifier
	broadcast    func(appointmentID string, payload interface{})
}

func NewStore(appointments Collection, coupons CouponValidator, notify mq.Notifier, broadcast func(string, interface{})) *Store {
	if broadcast == nil {
		broadcast = func(string, interface{}) {}
	}
	return &Store{appointments: appointments, coupons: coupons, notify: notify, broadcast: broadcast}
}

// Create books a pending appointment with a frozen pricing snapshot.
func (s *Store) Create(ctx context.Context, userID string, req CreateRequest) (*models.Appointment, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing customer", apperr.ErrValidation)
	}
	if req.BusinessID == "" || req.ServiceID == "" {
		return nil, fmt.Errorf("%w: missing business or service reference", apperr.ErrValidation)
	}
	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("%w: appointment needs at least one service line", apperr.ErrValidation)
	}
	for _, line := range req.LineItems {
		if line.Price < 0 {
			return nil, fmt.Errorf("%w: line price must not be negative", apperr.ErrValidation)
		}
	}
	if !req.Scheduled.After(time.Now()) {
		return nil, fmt.Errorf("%w: appointment must be scheduled in the future", apperr.ErrInvalidSchedule)
	}

	subtotal := 0.0
	for _, line := range req.LineItems {
		subtotal += line.Price
	}
	subtotal = utils.RoundMoney(subtotal)
	tax := utils.RoundMoney(subtotal * taxRate)

	discount := 0.0
	if req.CouponCode != "" {
		if s.coupons == nil {
			return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidCoupon, req.CouponCode)
		}
		var err error
		discount, err = s.coupons.Validate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	total := utils.RoundMoney(subtotal + tax - discount)
	if total < 0 {
		total = 0
	}

	now := time.Now()
	appt := &models.Appointment{
		AppointmentID: utils.GetUUID(),
		UserID:        userID,
		BusinessID:    req.BusinessID,
		ServiceID:     req.ServiceID,
		PetID:         req.PetID,
		Scheduled:     req.Scheduled,
		LineItems:     req.LineItems,
		Subtotal:      subtotal,
		Tax:           tax,
		Discount:      discount,
		Total:         total,
		CouponCode:    req.CouponCode,
		Status:        models.AppointmentStatusPending,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 0; attempt < maxBookingAttempts; attempt++ {
		appt.BookingID = "APT" + utils.GenerateRandomDigitString(8)
		_, err := s.appointments.InsertOne(ctx, appt)
		if err == nil {
			s.notify.Emit(ctx, mq.Event{
				Name:       "appointment-requested",
				Recipient:  appt.BusinessID,
				EntityType: "appointment",
				EntityId:   appt.AppointmentID,
				Detail:     appt.BookingID,
			})
			return appt, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return nil, fmt.Errorf("%w: booking id after %d attempts", apperr.ErrAllocationExhausted, maxBookingAttempts)
}

// UpdateStatus moves an appointment through its state machine. Confirmation
// and completion belong to the booked business alone; either party may
// cancel a non-terminal appointment. The filter pins the status that was read, so of two
// concurrent writers exactly one wins.
func (s *Store) UpdateStatus(ctx context.Context, appointmentID, next, actorID, actorRole string) (*models.Appointment, error) {
	appt, err := s.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(appointmentTransitions, appt.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, appt.Status, next)
	}

	actsForBusiness := actorRole == globals.RoleBusiness && actorID == appt.BusinessID
	switch next {
	case models.AppointmentStatusConfirmed, models.AppointmentStatusCompleted:
		if !actsForBusiness {
			return nil, fmt.Errorf("%w: only the booked business can set %s", apperr.ErrUnauthorized, next)
		}
	case models.AppointmentStatusCancelled:
		if !actsForBusiness && actorID != appt.UserID {
			return nil, fmt.Errorf("%w: not a party to this appointment", apperr.ErrUnauthorized)
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Appointment
	err = s.appointments.FindOneAndUpdate(ctx,
		bson.M{"appointmentid": appointmentID, "status": appt.Status},
		bson.M{"$set": bson.M{"status": next, "updatedAt": time.Now()}},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: appointment %s changed concurrently", apperr.ErrConflict, appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment %s status: %w", appointmentID, err)
	}

	s.notify.Emit(ctx, mq.Event{
		Name:       "appointment-" + next,
		Recipient:  updated.UserID,
		EntityType: "appointment",
		EntityId:   appointmentID,
	})
	s.broadcast(appointmentID, utils.M{
		"appointmentid": appointmentID,
		"bookingid":     updated.BookingID,
		"status":        updated.Status,
	})
	return &updated, nil
}

// GetByID returns a single appointment.
func (s *Store) GetByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.appointments.FindOne(ctx, bson.M{"appointmentid": appointmentID}).Decode(&appt)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: appointment %s", apperr.ErrNotFound, appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment %s: %w", appointmentID, err)
	}
	return &appt, nil
}

// ListForUser returns the customer's appointments, soonest first.
func (s *Store) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]models.Appointment, error) {
	return s.list(ctx, bson.M{"userId": userID}, skip, limit)
}

// ListForBusiness returns a business's appointments, soonest first.
func (s *Store) ListForBusiness(ctx context.Context, businessID string, skip, limit int64) ([]models.Appointment, error) {
	return s.list(ctx, bson.M{"businessId": businessID}, skip, limit)
}

func (s *Store) list(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Appointment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.appointments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appts := []models.Appointment{}
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return appts, nil
}

func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
