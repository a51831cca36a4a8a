package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pawmart/apperr"
	"pawmart/models"
	"pawmart/mq"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeOrderColl is an in-memory stand-in for the orders collection. It
// enforces the same uniqueness rules as the real indexes: one open cart per
// customer and at most one order per orderNumber.
type fakeOrderColl struct {
	mu      sync.Mutex
	orders  map[string]models.Order
	numbers map[int64]string
}

func newFakeOrderColl() *fakeOrderColl {
	return &fakeOrderColl{
		orders:  map[string]models.Order{},
		numbers: map[int64]string{},
	}
}

func dupKeyErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}
}

func (c *fakeOrderColl) seed(o models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.OrderID] = o
	if o.OrderNumber != nil {
		c.numbers[*o.OrderNumber] = o.OrderID
	}
}

func (c *fakeOrderColl) get(id string) models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orders[id]
}

func (c *fakeOrderColl) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	fl := filter.(bson.M)
	if id, ok := fl["orderid"].(string); ok {
		if o, found := c.orders[id]; found {
			return mongo.NewSingleResultFromDocument(o, nil, nil)
		}
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	if userID, ok := fl["userId"].(string); ok {
		status, _ := fl["status"].(string)
		for _, o := range c.orders {
			if o.UserID == userID && o.Status == status {
				return mongo.NewSingleResultFromDocument(o, nil, nil)
			}
		}
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *fakeOrderColl) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	fl := filter.(bson.M)
	id := fl["orderid"].(string)
	wantStatus := fl["status"].(string)

	o, found := c.orders[id]
	if !found || o.Status != wantStatus {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}

	set := update.(bson.M)["$set"].(bson.M)
	if raw, ok := set["orderNumber"]; ok {
		n := raw.(int64)
		if holder, taken := c.numbers[n]; taken && holder != id {
			return mongo.NewSingleResultFromDocument(bson.D{}, dupKeyErr(), nil)
		}
		c.numbers[n] = id
		o.OrderNumber = &n
	}
	if status, ok := set["status"].(string); ok {
		o.Status = status
	}
	if at, ok := set["updatedAt"].(time.Time); ok {
		o.UpdatedAt = at
	}
	c.orders[id] = o
	return mongo.NewSingleResultFromDocument(o, nil, nil)
}

func (c *fakeOrderColl) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := document.(*models.Order)
	if _, exists := c.orders[o.OrderID]; exists {
		return nil, dupKeyErr()
	}
	if o.Status == models.OrderStatusCart {
		for _, other := range c.orders {
			if other.UserID == o.UserID && other.Status == models.OrderStatusCart {
				return nil, dupKeyErr()
			}
		}
	}
	c.orders[o.OrderID] = *o
	return &mongo.InsertOneResult{InsertedID: o.OrderID}, nil
}

func (c *fakeOrderColl) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fl := filter.(bson.M)
	id := fl["orderid"].(string)
	wantStatus := fl["status"].(string)

	o, found := c.orders[id]
	if !found || o.Status != wantStatus {
		return &mongo.UpdateResult{}, nil
	}

	lineIdx := -1
	if cond, ok := fl["items.itemId"]; ok {
		switch v := cond.(type) {
		case string:
			for i := range o.Items {
				if o.Items[i].ItemId == v {
					lineIdx = i
					break
				}
			}
			if lineIdx < 0 {
				return &mongo.UpdateResult{}, nil
			}
		case bson.M:
			ne := v["$ne"].(string)
			for i := range o.Items {
				if o.Items[i].ItemId == ne {
					return &mongo.UpdateResult{}, nil
				}
			}
		}
	}

	up := update.(bson.M)
	if inc, ok := up["$inc"].(bson.M); ok {
		if q, ok := inc["items.$.quantity"].(int); ok && lineIdx >= 0 {
			o.Items[lineIdx].Quantity += q
		}
		if v, ok := inc["subtotal"].(float64); ok {
			o.Subtotal += v
		}
		if v, ok := inc["total"].(float64); ok {
			o.Total += v
		}
	}
	if push, ok := up["$push"].(bson.M); ok {
		if item, ok := push["items"].(models.OrderItem); ok {
			o.Items = append(append([]models.OrderItem{}, o.Items...), item)
		}
	}
	if set, ok := up["$set"].(bson.M); ok {
		if at, ok := set["updatedAt"].(time.Time); ok {
			o.UpdatedAt = at
		}
	}
	c.orders[id] = o
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (c *fakeOrderColl) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fl := filter.(bson.M)
	userID := fl["userId"].(string)

	matched := []models.Order{}
	for _, o := range c.orders {
		if o.UserID == userID && o.Status != models.OrderStatusCart {
			matched = append(matched, o)
		}
	}
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.After(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	docs := make([]interface{}, len(matched))
	for i, o := range matched {
		docs[i] = o
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

// fakeCounterColl hands out sequence numbers. A custom next func lets tests
// force collisions or a stuck counter.
type fakeCounterColl struct {
	mu   sync.Mutex
	seq  int64
	next func() int64
}

func (c *fakeCounterColl) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	if c.next != nil {
		n = c.next()
	} else {
		c.seq++
		n = c.seq
	}
	return mongo.NewSingleResultFromDocument(bson.M{"_id": "orderNumber", "seq": n}, nil, nil)
}

func (c *fakeCounterColl) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *fakeCounterColl) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return &mongo.InsertOneResult{}, nil
}

func (c *fakeCounterColl) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

func (c *fakeCounterColl) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return mongo.NewCursorFromDocuments([]interface{}{}, nil, nil)
}

type nopNotifier struct{}

func (nopNotifier) Emit(ctx context.Context, event mq.Event) {}

func newTestStore() (*Store, *fakeOrderColl, *fakeCounterColl) {
	orders := newFakeOrderColl()
	counters := &fakeCounterColl{}
	return NewStore(orders, counters, nopNotifier{}), orders, counters
}

func seedCart(coll *fakeOrderColl, orderID, userID string, items ...models.OrderItem) {
	subtotal := 0.0
	for _, it := range items {
		subtotal += float64(it.Quantity) * it.Price
	}
	coll.seed(models.Order{
		OrderID:   orderID,
		UserID:    userID,
		Status:    models.OrderStatusCart,
		Items:     items,
		Subtotal:  subtotal,
		Total:     subtotal,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
}

func TestAddToCartValidation(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	cases := []models.OrderItem{
		{ItemId: "food-1", Quantity: 0, Price: 10},
		{ItemId: "food-1", Quantity: -2, Price: 10},
		{ItemId: "", Quantity: 1, Price: 10},
		{ItemId: "food-1", Quantity: 1, Price: -1},
	}
	for _, item := range cases {
		if _, err := store.AddToCart(ctx, "cust-1", item); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("item %+v: got %v, want validation error", item, err)
		}
	}
}

func TestAddToCartCreatesAndMerges(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	cart, err := store.AddToCart(ctx, "cust-1", models.OrderItem{ItemId: "food-1", ItemName: "Kibble", Quantity: 1, Price: 12.50})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if cart.Status != models.OrderStatusCart {
		t.Fatalf("status = %q, want cart", cart.Status)
	}

	cart, err = store.AddToCart(ctx, "cust-1", models.OrderItem{ItemId: "food-1", Quantity: 2, Price: 12.50})
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("items = %+v, want one line with quantity 3", cart.Items)
	}

	cart, err = store.AddToCart(ctx, "cust-1", models.OrderItem{ItemId: "toy-1", ItemName: "Rope Toy", Quantity: 1, Price: 5})
	if err != nil {
		t.Fatalf("second line add: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("items = %+v, want two lines", cart.Items)
	}
	if cart.Total != 42.50 {
		t.Fatalf("total = %v, want 42.50", cart.Total)
	}
}

func TestConcurrentAddToCartNoLostLines(t *testing.T) {
	store, coll, _ := newTestStore()
	ctx := context.Background()
	seedCart(coll, "ord-1", "cust-1")

	const perItem = 10
	var wg sync.WaitGroup
	for i := 0; i < perItem; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := store.AddToCart(ctx, "cust-1", models.OrderItem{ItemId: "food-1", ItemName: "Kibble", Quantity: 1, Price: 10}); err != nil {
				t.Errorf("add food: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := store.AddToCart(ctx, "cust-1", models.OrderItem{ItemId: "toy-1", ItemName: "Rope Toy", Quantity: 2, Price: 5}); err != nil {
				t.Errorf("add toy: %v", err)
			}
		}()
	}
	wg.Wait()

	cart := coll.get("ord-1")
	if len(cart.Items) != 2 {
		t.Fatalf("items = %+v, want two lines", cart.Items)
	}
	quantities := map[string]int{}
	for _, it := range cart.Items {
		quantities[it.ItemId] = it.Quantity
	}
	if quantities["food-1"] != perItem {
		t.Errorf("food quantity = %d, want %d", quantities["food-1"], perItem)
	}
	if quantities["toy-1"] != 2*perItem {
		t.Errorf("toy quantity = %d, want %d", quantities["toy-1"], 2*perItem)
	}
	want := float64(perItem*10 + perItem*2*5)
	if cart.Subtotal != want || cart.Total != want {
		t.Errorf("subtotal/total = %v/%v, want %v", cart.Subtotal, cart.Total, want)
	}
}

func TestCheckoutAssignsNumberOnce(t *testing.T) {
	store, coll, _ := newTestStore()
	ctx := context.Background()
	seedCart(coll, "ord-1", "cust-1", models.OrderItem{ItemId: "food-1", Quantity: 1, Price: 10})

	checked, err := store.Checkout(ctx, "ord-1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if checked.Status != models.OrderStatusPending {
		t.Fatalf("status = %q, want pending", checked.Status)
	}
	if checked.OrderNumber == nil || *checked.OrderNumber != 1 {
		t.Fatalf("orderNumber = %v, want 1", checked.OrderNumber)
	}

	if _, err := store.Checkout(ctx, "ord-1"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second checkout: got %v, want conflict", err)
	}
	stored := coll.get("ord-1")
	if stored.OrderNumber == nil || *stored.OrderNumber != 1 {
		t.Fatalf("orderNumber after failed re-checkout = %v, want unchanged 1", stored.OrderNumber)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	store, coll, _ := newTestStore()
	seedCart(coll, "ord-empty", "cust-1")

	if _, err := store.Checkout(context.Background(), "ord-empty"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestConcurrentCheckoutsGetDistinctNumbers(t *testing.T) {
	store, coll, _ := newTestStore()
	ctx := context.Background()

	const n = 20
	for i := 0; i < n; i++ {
		seedCart(coll, fmt.Sprintf("ord-%d", i), fmt.Sprintf("cust-%d", i),
			models.OrderItem{ItemId: "food-1", Quantity: 1, Price: 10})
	}

	var wg sync.WaitGroup
	results := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			checked, err := store.Checkout(ctx, fmt.Sprintf("ord-%d", i))
			if err != nil {
				errs <- err
				return
			}
			results <- *checked.OrderNumber
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("checkout failed: %v", err)
	}
	seen := map[int64]bool{}
	for number := range results {
		if seen[number] {
			t.Fatalf("order number %d assigned twice", number)
		}
		seen[number] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct numbers, want %d", len(seen), n)
	}
}

func TestConcurrentCheckoutSameOrderOneWinner(t *testing.T) {
	store, coll, _ := newTestStore()
	ctx := context.Background()
	seedCart(coll, "ord-1", "cust-1", models.OrderItem{ItemId: "food-1", Quantity: 1, Price: 10})

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Checkout(ctx, "ord-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if conflicts != n-1 {
		t.Fatalf("conflicts = %d, want %d", conflicts, n-1)
	}
	stored := coll.get("ord-1")
	if stored.OrderNumber == nil {
		t.Fatal("winner left no order number")
	}
}

func TestCheckoutRegeneratesOnCollision(t *testing.T) {
	store, coll, _ := newTestStore()
	ctx := context.Background()

	// number 1 is already held by an older order, so the first candidate
	// from the counter collides and the loop must regenerate
	one := int64(1)
	coll.seed(models.Order{OrderID: "ord-old", UserID: "cust-0", Status: models.OrderStatusPending, OrderNumber: &one})
	seedCart(coll, "ord-1", "cust-1", models.OrderItem{ItemId: "food-1", Quantity: 1, Price: 10})

	checked, err := store.Checkout(ctx, "ord-1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if checked.OrderNumber == nil || *checked.OrderNumber != 2 {
		t.Fatalf("orderNumber = %v, want 2 after collision retry", checked.OrderNumber)
	}
}

func TestCheckoutAllocationExhausted(t *testing.T) {
	store, coll, counters := newTestStore()
	ctx := context.Background()

	one := int64(1)
	coll.seed(models.Order{OrderID: "ord-old", UserID: "cust-0", Status: models.OrderStatusPending, OrderNumber: &one})
	seedCart(coll, "ord-1", "cust-1", models.OrderItem{ItemId: "food-1", Quantity: 1, Price: 10})
	counters.next = func() int64 { return 1 }

	_, err := store.Checkout(ctx, "ord-1")
	if !errors.Is(err, apperr.ErrAllocationExhausted) {
		t.Fatalf("got %v, want allocation exhausted", err)
	}
	stored := coll.get("ord-1")
	if stored.Status != models.OrderStatusCart || stored.OrderNumber != nil {
		t.Fatalf("order mutated by failed checkout: status=%q number=%v", stored.Status, stored.OrderNumber)
	}
}

func TestUpdateStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusCompleted, false},
		{models.OrderStatusConfirmed, models.OrderStatusCompleted, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusCompleted, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
		{models.OrderStatusCart, models.OrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			store, coll, _ := newTestStore()
			coll.seed(models.Order{OrderID: "ord-1", UserID: "cust-1", Status: tc.from})

			updated, err := store.UpdateStatus(context.Background(), "ord-1", tc.to)
			if tc.ok {
				if err != nil {
					t.Fatalf("transition %s->%s: %v", tc.from, tc.to, err)
				}
				if updated.Status != tc.to {
					t.Fatalf("status = %q, want %q", updated.Status, tc.to)
				}
				return
			}
			if !errors.Is(err, apperr.ErrInvalidTransition) {
				t.Fatalf("transition %s->%s: got %v, want invalid transition", tc.from, tc.to, err)
			}
			if got := coll.get("ord-1").Status; got != tc.from {
				t.Fatalf("status mutated to %q by rejected transition", got)
			}
		})
	}
}

func TestListForUserExcludesCart(t *testing.T) {
	store, coll, _ := newTestStore()
	ctx := context.Background()

	now := time.Now()
	one, two := int64(1), int64(2)
	coll.seed(models.Order{OrderID: "ord-1", UserID: "cust-1", Status: models.OrderStatusPending, OrderNumber: &one, CreatedAt: now.Add(-time.Hour)})
	coll.seed(models.Order{OrderID: "ord-2", UserID: "cust-1", Status: models.OrderStatusCompleted, OrderNumber: &two, CreatedAt: now})
	coll.seed(models.Order{OrderID: "ord-cart", UserID: "cust-1", Status: models.OrderStatusCart, CreatedAt: now})
	coll.seed(models.Order{OrderID: "ord-other", UserID: "cust-2", Status: models.OrderStatusPending, CreatedAt: now})

	list, err := store.ListForUser(ctx, "cust-1", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d orders, want 2", len(list))
	}
	if list[0].OrderID != "ord-2" || list[1].OrderID != "ord-1" {
		t.Fatalf("order = [%s %s], want newest first [ord-2 ord-1]", list[0].OrderID, list[1].OrderID)
	}
}
