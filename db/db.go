package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	OrderCollection       *mongo.Collection
	CounterCollection     *mongo.Collection
	AppointmentCollection *mongo.Collection
	ReviewsCollection     *mongo.Collection
	BusinessCollection    *mongo.Collection
	CouponCollection      *mongo.Collection
	PetCollection         *mongo.Collection
	Client                *mongo.Client
)

// Initialize MongoDB connection. Connect is lazy; no I/O happens until the
// first operation, so importing this package never requires a live server.
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("pawmartdb")
	OrderCollection = database.Collection("orders")
	CounterCollection = database.Collection("counters")
	AppointmentCollection = database.Collection("appointments")
	ReviewsCollection = database.Collection("reviews")
	BusinessCollection = database.Collection("businesses")
	CouponCollection = database.Collection("coupons")
	PetCollection = database.Collection("pets")
}

// EnsureIndexes creates the uniqueness constraints the stores rely on.
//
// orderNumber MUST be a partial unique index: carts have no number, and a
// plain unique index would treat every numberless cart as a duplicate of the
// next. Scoping the constraint to documents where the field exists lets any
// number of concurrent carts coexist while still rejecting a duplicate
// number at checkout.
func EnsureIndexes(ctx context.Context) error {
	_, err := OrderCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"orderNumber": bson.M{"$exists": true}}),
		},
		{
			// one open cart per customer
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "cart"}),
		},
		{Keys: bson.D{{Key: "orderid", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}

	_, err = AppointmentCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "appointmentid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingid", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}

	_, err = ReviewsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reviewid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "businessId", Value: 1}, {Key: "userid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = BusinessCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "businessId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = CouponCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
