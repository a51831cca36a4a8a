package coupons

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pawmart/apperr"
	"pawmart/db"
	"pawmart/models"
	"pawmart/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the slice of *mongo.Collection the validator uses.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Validator resolves coupon codes against the coupons collection.
type Validator struct {
	coupons Collection
}

func NewValidator(coupons Collection) *Validator {
	return &Validator{coupons: coupons}
}

var (
	defaultValidator *Validator
	validatorOnce    sync.Once
)

// Default returns the validator bound to the live collection.
func Default() *Validator {
	validatorOnce.Do(func() {
		defaultValidator = NewValidator(db.CouponCollection)
	})
	return defaultValidator
}

// Validate returns the discount amount the coupon grants on the given
// subtotal. Unknown, inactive and expired codes all map to the same error
// so callers cannot probe for codes.
func (v *Validator) Validate(ctx context.Context, code string, subtotal float64) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, fmt.Errorf("%w: empty code", apperr.ErrInvalidCoupon)
	}

	var coupon models.Coupon
	err := v.coupons.FindOne(ctx, bson.M{"code": code}).Decode(&coupon)
	if err == mongo.ErrNoDocuments {
		return 0, fmt.Errorf("%w: %s", apperr.ErrInvalidCoupon, code)
	}
	if err != nil {
		return 0, fmt.Errorf("look up coupon %s: %w", code, err)
	}
	if !coupon.Active || time.Now().After(coupon.ExpiresAt) {
		return 0, fmt.Errorf("%w: %s", apperr.ErrInvalidCoupon, code)
	}

	discount := utils.RoundMoney(subtotal * coupon.Discount / 100)
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}
