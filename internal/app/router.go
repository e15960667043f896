package app

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"spacebooking/internal/config"
	"spacebooking/internal/middleware"
	"spacebooking/internal/modules/notification"
	"spacebooking/internal/modules/schedule"
	"spacebooking/internal/pkg/clock"
	jwtsvc "spacebooking/internal/pkg/jwt"
	"spacebooking/internal/pkg/mailer"
	"spacebooking/internal/realtime"
	"spacebooking/internal/recurrence"
	"spacebooking/internal/repository"
)

// App holds the HTTP router and the long-lived pieces main needs to close.
type App struct {
	Router *gin.Engine
	Hub    *realtime.Hub
	JWT    *jwtsvc.Service
}

// New wires repositories, services and handlers over db.
func New(cfg *config.Config, db *gorm.DB, clk clock.Clock) *App {
	scheduleRepo := repository.NewScheduleRepository(db)
	spaceRepo := repository.NewSpaceRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	hub := realtime.NewHub()

	mail := mailer.New(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)
	if !mail.Enabled() {
		log.Println("mail_disabled reason=MAIL_API_URL_empty")
	}

	notificationService := notification.NewService(notificationRepo, hub)
	notificationHandler := notification.NewHandler(notificationService)
	sender := notification.NewSender(notificationService, mail, cfg.ScheduleLocation)

	expander := recurrence.NewExpander(clk, cfg.HorizonCap)
	scheduleService := schedule.NewService(scheduleRepo, spaceRepo, expander, cfg.ScheduleLocation)
	scheduleHandler := schedule.NewHandler(scheduleService, schedule.NewDispatcher(userRepo, sender))

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.ErrorLogger(),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "online_users": hub.OnlineCount()})
	})
	realtime.NewWSHandler(hub, j).RegisterRoutes(r)

	v1 := r.Group("/api/v1")
	protected := v1.Group("/")
	protected.Use(middleware.JWTAuth(j))
	{
		scheduleHandler.RegisterRoutes(protected)
		notificationHandler.RegisterRoutes(protected)
		scheduleHandler.RegisterManagerRoutes(protected.Group("/", middleware.ManagerOnly()))
	}

	return &App{Router: r, Hub: hub, JWT: j}
}
