package orders

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

// Collection is the slice of *mongo.Collection the order store uses.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// maxAllocationAttempts bounds the checkout retry loop. Each retry only
// regenerates the candidate number; it never redoes validation.
const maxAllocationAttempts = 5

var orderTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

// Store owns the cart/order lifecycle and the order-number allocation
// protocol. Numbers come from an atomically incremented counter document;
// the partial unique index on orderNumber is the last line of defense, and a
// duplicate-key reply sends the loop around for a fresh candidate.
type Store struct {
	orders   Collection
	counters Collection
	notify   mq.Notifier
}

func NewStore(orders, counters Collection, notify mq.Notifier) *Store {
	return &Store{orders: orders, counters: counters, notify: notify}
}

// AddToCart finds or creates the customer's single open cart and merges the
// line item into it. Carts carry no orderNumber, so any number of them can
// exist concurrently without touching the uniqueness constraint.
func (s *Store) AddToCart(ctx context.Context, userID string, item models.OrderItem) (*models.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing customer", apperr.ErrValidation)
	}
	if item.ItemId == "" {
		return nil, fmt.Errorf("%w: missing item reference", apperr.ErrValidation)
	}
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", apperr.ErrValidation)
	}
	if item.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", apperr.ErrValidation)
	}

	cart, err := s.openCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart, err = s.createCart(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	// the merge is a pair of single-document updates, never read-modify-
	// write: concurrent adds land as independent $inc/$push operations
	amount := utils.RoundMoney(float64(item.Quantity) * item.Price)

	// bump the existing line if there is one
	res, err := s.orders.UpdateOne(ctx,
		bson.M{"orderid": cart.OrderID, "status": models.OrderStatusCart, "items.itemId": item.ItemId},
		bson.M{
			"$inc": bson.M{"items.$.quantity": item.Quantity, "subtotal": amount, "total": amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("update cart %s: %w", cart.OrderID, err)
	}

	if res.MatchedCount == 0 {
		// no line for this item yet; append one unless a concurrent add
		// beat us to it
		res, err = s.orders.UpdateOne(ctx,
			bson.M{"orderid": cart.OrderID, "status": models.OrderStatusCart, "items.itemId": bson.M{"$ne": item.ItemId}},
			bson.M{
				"$push": bson.M{"items": item},
				"$inc":  bson.M{"subtotal": amount, "total": amount},
				"$set":  bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("update cart %s: %w", cart.OrderID, err)
		}
	}

	if res.MatchedCount == 0 {
		// the line appeared between the two updates; bump it after all
		res, err = s.orders.UpdateOne(ctx,
			bson.M{"orderid": cart.OrderID, "status": models.OrderStatusCart, "items.itemId": item.ItemId},
			bson.M{
				"$inc": bson.M{"items.$.quantity": item.Quantity, "subtotal": amount, "total": amount},
				"$set": bson.M{"updatedAt": time.Now()},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("update cart %s: %w", cart.OrderID, err)
		}
	}

	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: cart was checked out concurrently", apperr.ErrConflict)
	}
	return s.GetByID(ctx, cart.OrderID)
}

// Checkout moves a cart to pending and assigns its order number exactly
// once. The status guard in the compare-and-set filter makes the first
// writer win; every loser sees no match and reports a conflict instead of
// silently re-numbering the order.
func (s *Store) Checkout(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusCart {
		return nil, fmt.Errorf("%w: order %s already checked out", apperr.ErrConflict, orderID)
	}
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: cannot check out an empty cart", apperr.ErrValidation)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		number, err := s.nextOrderNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocate order number: %w", err)
		}

		var checked models.Order
		err = s.orders.FindOneAndUpdate(ctx,
			bson.M{"orderid": orderID, "status": models.OrderStatusCart},
			bson.M{"$set": bson.M{
				"status":      models.OrderStatusPending,
				"orderNumber": number,
				"updatedAt":   time.Now(),
			}},
			opts,
		).Decode(&checked)

		if err == nil {
			s.notify.Emit(ctx, mq.Event{
				Name:       "order-checkout",
				Recipient:  checked.UserID,
				EntityType: "order",
				EntityId:   orderID,
				Detail:     fmt.Sprintf("order number %d", number),
			})
			return &checked, nil
		}
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: order %s left cart state concurrently", apperr.ErrConflict, orderID)
		}
		if mongo.IsDuplicateKeyError(err) {
			// candidate number already taken, regenerate and retry
			continue
		}
		return nil, fmt.Errorf("checkout %s: %w", orderID, err)
	}

	return nil, fmt.Errorf("%w: order %s after %d attempts", apperr.ErrAllocationExhausted, orderID, maxAllocationAttempts)
}

// UpdateStatus applies pending→confirmed→completed or a cancellation from a
// non-terminal state, compare-and-set on the status that was read.
func (s *Store) UpdateStatus(ctx context.Context, orderID, next string) (*models.Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(orderTransitions, order.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, order.Status, next)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Order
	err = s.orders.FindOneAndUpdate(ctx,
		bson.M{"orderid": orderID, "status": order.Status},
		bson.M{"$set": bson.M{"status": next, "updatedAt": time.Now()}},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: order %s changed concurrently", apperr.ErrConflict, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s status: %w", orderID, err)
	}

	s.notify.Emit(ctx, mq.Event{
		Name:       "order-" + next,
		Recipient:  updated.UserID,
		EntityType: "order",
		EntityId:   orderID,
	})
	return &updated, nil
}

// GetByID returns a single order.
func (s *Store) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return &order, nil
}

// Cart returns the customer's open cart, or nil when there is none.
func (s *Store) Cart(ctx context.Context, userID string) (*models.Order, error) {
	return s.openCart(ctx, userID)
}

// ListForUser returns the customer's checked-out orders, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.orders.Find(ctx, bson.M{
		"userId": userID,
		"status": bson.M{"$ne": models.OrderStatusCart},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders for %s: %w", userID, err)
	}
	return orders, nil
}

func (s *Store) openCart(ctx context.Context, userID string) (*models.Order, error) {
	var cart models.Order
	err := s.orders.FindOne(ctx, bson.M{"userId": userID, "status": models.OrderStatusCart}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart for %s: %w", userID, err)
	}
	return &cart, nil
}

func (s *Store) createCart(ctx context.Context, userID string) (*models.Order, error) {
	now := time.Now()
	cart := &models.Order{
		OrderID:   utils.GetUUID(),
		UserID:    userID,
		Status:    models.OrderStatusCart,
		Items:     []models.OrderItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.orders.InsertOne(ctx, cart); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost the race to another request of the same customer;
			// the partial unique index on (userId, status=cart) holds
			existing, rerr := s.openCart(ctx, userID)
			if rerr != nil {
				return nil, rerr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("create cart for %s: %w", userID, err)
	}
	return cart, nil
}

func (s *Store) nextOrderNumber(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orderNumber"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
