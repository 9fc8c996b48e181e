package router

import (
	"github.com/chachabrian/chefbook-backend/internal/handlers"
	"github.com/chachabrian/chefbook-backend/internal/middleware"
	"github.com/chachabrian/chefbook-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Dependencies struct {
	DB       *gorm.DB
	Resolver middleware.PrincipalResolver
	Users    handlers.PushTokenStore
	Bookings *services.BookingService
	Hub      *services.Hub
	Log      logrus.FieldLogger
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/healthz", handlers.HealthCheck(deps.DB))

	api := r.Group("/api")
	{
		api.GET("/ws", middleware.WebSocketAuthMiddleware(deps.Resolver), handlers.WebSocketHandler(deps.Hub))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(deps.Resolver))
		{
			bookings := protected.Group("/bookings")
			{
				bookings.POST("", handlers.CreateBooking(deps.Bookings))
				bookings.GET("/requester", handlers.GetRequesterBookings(deps.Bookings))
				bookings.GET("/provider", handlers.GetProviderBookings(deps.Bookings))
				bookings.GET("/:id", handlers.GetBooking(deps.Bookings))
				bookings.POST("/:id/accept", handlers.AcceptBooking(deps.Bookings))
				bookings.POST("/:id/decline", handlers.DeclineBooking(deps.Bookings))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.POST("/register-token", handlers.RegisterFCMToken(deps.Users))
				notifications.DELETE("/remove-token", handlers.RemoveFCMToken(deps.Users))
			}
		}
	}

	return r
}
