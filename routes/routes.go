package routes

import (
	"time"

	"nudge/handlers"
	"nudge/middleware"
	"nudge/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RegisterDeviceRoutes registers token registration endpoints.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/registerToken", hb.RegisterTokenHandler)
	r.POST("/removeToken", hb.RemoveTokenHandler)
}

// RegisterReminderRoutes registers reminder scheduling endpoints.
func RegisterReminderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/scheduleReminder", hb.ScheduleReminderHandler)
	r.POST("/cancelReminder", hb.CancelReminderHandler)
}

// RegisterPushRoutes registers immediate push endpoints. Broadcast requires an admin token when a secret is configured.
func RegisterPushRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/sendPush", hb.SendPushHandler)

	if hb.AdminSecret != "" {
		r.POST("/sendBroadcast", middleware.JWTAuthAdminMiddleware(hb.AdminSecret), hb.SendBroadcastHandler)
	} else {
		r.POST("/sendBroadcast", hb.SendBroadcastHandler)
	}
}

// RegisterHealthRoute registers the health-check and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterDeviceRoutes(r, hb)
	RegisterReminderRoutes(r, hb)
	RegisterPushRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}

// NewRouter builds the gin engine with recovery, request logging, rate limiting and a JSON 405.
func NewRouter(hb *handlers.HandlerBundle, logger *zap.Logger, maxRequestsPerMin int) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(utils.MethodNotAllowed)
	r.Use(utils.ErrorHandler(), middleware.RequestLogger(logger), middleware.RateLimitMiddleware(maxRequestsPerMin))

	RegisterRoutes(r, hb)
	return r
}
