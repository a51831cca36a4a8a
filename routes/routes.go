package routes

import (
	"net/http"

	"pawmart/appointments"
	"pawmart/coupons"
	"pawmart/middleware"
	"pawmart/orders"
	"pawmart/ratelim"
	"pawmart/ratings"
	"pawmart/reviews"

	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	AddStaticRoutes(router)
	AddOrderRoutes(router, rateLimiter)
	AddAppointmentRoutes(router, rateLimiter)
	AddReviewRoutes(router, rateLimiter)
	AddRatingRoutes(router, rateLimiter)
	AddCouponRoutes(router, rateLimiter)
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/reviewpic/*filepath", http.Dir("static/reviewpic"))
}

func AddOrderRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/cart/add", rateLimiter.Limit(middleware.Authenticate(orders.AddToCart)))
	router.GET("/api/cart", rateLimiter.Limit(middleware.Authenticate(orders.GetCart)))
	router.GET("/api/orders", rateLimiter.Limit(middleware.Authenticate(orders.GetMyOrders)))
	router.POST("/api/order/:orderid/checkout", ratelim.RateLimit(middleware.Authenticate(orders.CheckoutOrder)))
	router.GET("/api/order/:orderid", rateLimiter.Limit(middleware.Authenticate(orders.GetOrder)))
	router.PUT("/api/order/:orderid/status", rateLimiter.Limit(middleware.Authenticate(orders.UpdateOrderStatus)))
	router.GET("/api/order/:orderid/invoice", rateLimiter.Limit(middleware.Authenticate(orders.DownloadInvoice)))
}

func AddAppointmentRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/appointments", ratelim.RateLimit(middleware.Authenticate(appointments.CreateAppointment)))
	router.GET("/api/appointments", rateLimiter.Limit(middleware.Authenticate(appointments.GetMyAppointments)))
	router.GET("/api/appointments/:appointmentid", rateLimiter.Limit(middleware.Authenticate(appointments.GetAppointment)))
	router.PUT("/api/appointments/:appointmentid/status", rateLimiter.Limit(middleware.Authenticate(appointments.UpdateAppointmentStatus)))
	router.GET("/api/appointments/:appointmentid/qr", rateLimiter.Limit(middleware.Authenticate(appointments.CheckInQR)))
	router.GET("/api/appointments/:appointmentid/confirmation", rateLimiter.Limit(middleware.Authenticate(appointments.DownloadConfirmation)))
	router.POST("/api/pets", rateLimiter.Limit(middleware.Authenticate(appointments.AddPet)))
	router.GET("/api/pets", rateLimiter.Limit(middleware.Authenticate(appointments.GetMyPets)))
	router.GET("/api/business/:businessid/appointments", rateLimiter.Limit(middleware.Authenticate(appointments.GetBusinessAppointments)))
	router.GET("/ws/appointments/:appointmentid", appointments.StatusFeed)
}

func AddReviewRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/reviews/:businessid", ratelim.RateLimit(middleware.Authenticate(reviews.AddReview)))
	router.GET("/api/reviews/:businessid", rateLimiter.Limit(middleware.OptionalAuth(reviews.GetReviews)))
	router.GET("/api/reviews/:businessid/:reviewid", rateLimiter.Limit(middleware.OptionalAuth(reviews.GetReview)))
	router.PUT("/api/reviews/:businessid/:reviewid", rateLimiter.Limit(middleware.Authenticate(reviews.EditReview)))
	router.POST("/api/reviews/:businessid/:reviewid/respond", rateLimiter.Limit(middleware.Authenticate(reviews.RespondToReview)))
	router.POST("/api/reviews/:businessid/:reviewid/photos", rateLimiter.Limit(middleware.Authenticate(reviews.UploadReviewPhotos)))
}

func AddRatingRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/business/:businessid/ratingstats", rateLimiter.Limit(middleware.OptionalAuth(ratings.GetRatingStats)))
	router.POST("/api/business/:businessid/ratingstats/recompute", rateLimiter.Limit(middleware.Authenticate(ratings.RecomputeRatingStats)))
}

func AddCouponRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/coupons/validate", rateLimiter.Limit(middleware.Authenticate(coupons.ValidateCoupon)))
	router.POST("/api/coupons", rateLimiter.Limit(middleware.Authenticate(coupons.CreateCoupon)))
}
