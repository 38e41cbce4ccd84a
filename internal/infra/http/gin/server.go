package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"carrental/internal/infra/config"
	"carrental/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	ListMine(c *gin.Context)
	ListAll(c *gin.Context)
	Approve(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
}

type PaymentHTTP interface {
	CreateIntent(c *gin.Context)
	Confirm(c *gin.Context)
	Status(c *gin.Context)
	Webhook(c *gin.Context)
}

type CarHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	UploadImage(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Payment        PaymentHTTP
	Car            CarHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-Id",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/my-bookings", h.Booking.ListMine)
		api.GET("/bookings", h.Booking.ListAll)
		api.PUT("/bookings/:id/approve", h.Booking.Approve)
		api.PUT("/bookings/:id/reject", h.Booking.Reject)
		api.DELETE("/bookings/:id", h.Booking.Cancel)
	}
	if h.Payment != nil {
		api.POST("/payments/create-intent/:bookingId", h.Payment.CreateIntent)
		api.POST("/payments/confirm/:bookingId", h.Payment.Confirm)
		api.GET("/payments/status/:bookingId", h.Payment.Status)
		api.POST("/payments/webhook", h.Payment.Webhook)
	}
	if h.Car != nil {
		api.GET("/cars", h.Car.Catalog)
		api.GET("/cars/:id", h.Car.Get)
		api.POST("/cars", h.Car.Create)
		api.PUT("/cars/:id", h.Car.Update)
		api.DELETE("/cars/:id", h.Car.Delete)
		api.POST("/cars/:id/image", h.Car.UploadImage)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

var _ BookingHTTP = BookingHandler{}
var _ PaymentHTTP = PaymentHandler{}
var _ CarHTTP = CarHandler{}
