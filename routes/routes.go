package routes

import (
	"net/http"
	"slices"
	"time"

	"inkdesk-backend/config"
	"inkdesk-backend/controllers"
	"inkdesk-backend/models"
	"inkdesk-backend/realtime"
	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer needs.
type Dependencies struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *zap.Logger
	Users     *services.UserService
	Pages     *services.PageService
	Chat      *services.ChatService
	Quotes    *services.QuoteService
	Clients   *services.ClientService
	Projects  *services.ProjectService
	Events    *services.EventService
	Reminders *services.ReminderService
	Store     services.FileStore
	Hub       *realtime.Hub
}

func SetupRouter(d Dependencies) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(gin.Recovery())

	allowAll := slices.Contains(cfg.CORSOrigins, "*")
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return allowAll || slices.Contains(cfg.CORSOrigins, origin)
		},
		MaxAge: 12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(d.Logger, cfg.SlowRequest))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSize

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", config.MetricsHandler())
	if !cfg.S3.Enabled() {
		r.Static(cfg.Uploads.PublicPath, cfg.Uploads.Dir)
	}

	authController := controllers.NewAuthController(d.Users, cfg.JWTSecret, cfg.JWTExpiry, cfg.IsProduction(), d.Logger)
	profileController := controllers.NewProfileController(d.Users, d.Reminders, d.Store, d.Logger)
	pageController := controllers.NewPageController(d.Pages, d.Store, d.Logger)
	chatController := controllers.NewChatController(d.Chat, d.Store, d.Logger)
	quoteController := controllers.NewQuoteController(d.Quotes, d.Logger)
	clientController := controllers.NewClientController(d.Clients, d.Logger)
	projectController := controllers.NewProjectController(d.Projects, d.Logger)
	eventController := controllers.NewEventController(d.Events, d.Logger)
	dashboardController := controllers.NewDashboardController(d.DB, d.Chat, d.Logger)
	reportController := controllers.NewReportController(d.DB, d.Logger)
	realtimeController := controllers.NewRealtimeController(d.Hub, cfg.JWTSecret, cfg.CORSOrigins, d.Logger)

	requireAuth := utils.AuthMiddleware(cfg.JWTSecret)
	artistOnly := utils.RequireRole(models.RoleArtist)
	clientOnly := utils.RequireRole(models.RoleClient)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.GET("/me", requireAuth, authController.Me)
	}

	// Public pages
	api.GET("/artists", pageController.ListArtists)
	api.GET("/pages/:slug", utils.OptionalAuth(cfg.JWTSecret), pageController.GetPublicPage)

	// The socket authenticates itself from the query string.
	api.GET("/chat/ws", realtimeController.Connect)

	protected := api.Group("")
	protected.Use(requireAuth)
	{
		profile := protected.Group("/profile")
		{
			profile.GET("", profileController.GetProfile)
			profile.PUT("", profileController.UpdateProfile)
			profile.POST("/photo", profileController.UploadPhoto)
			profile.GET("/templates", profileController.GetTemplates)
			profile.PUT("/templates", profileController.UpdateTemplate)
			profile.GET("/notifications", profileController.GetNotifications)
		}

		myPage := protected.Group("/pages/me", artistOnly)
		{
			myPage.GET("", pageController.GetMyPage)
			myPage.PUT("", pageController.UpdateMyPage)
			myPage.POST("/header", pageController.UploadHeader)
			myPage.POST("/gallery", pageController.UploadGallery)
			myPage.DELETE("/gallery", pageController.RemoveGalleryItem)
		}

		chat := protected.Group("/chat")
		{
			chat.GET("/unread", chatController.UnreadCount)
			chat.GET("/conversations", chatController.ListConversations)
			chat.POST("/conversations", clientOnly, chatController.StartConversation)
			chat.GET("/conversations/:id", chatController.GetConversation)
			chat.PUT("/conversations/:id/archive", chatController.ArchiveConversation)
			chat.GET("/conversations/:id/messages", chatController.ListMessages)
			chat.POST("/conversations/:id/messages", chatController.SendMessage)
			chat.PUT("/conversations/:id/read", chatController.MarkAsRead)
		}

		quotes := protected.Group("/quotes")
		{
			quotes.POST("", artistOnly, quoteController.CreateQuote)
			quotes.GET("", quoteController.GetQuotes)
			quotes.GET("/:id", quoteController.GetQuote)
			quotes.PUT("/:id", artistOnly, quoteController.UpdateQuote)
			quotes.DELETE("/:id", artistOnly, quoteController.DeleteQuote)
			quotes.POST("/:id/send", artistOnly, quoteController.SendQuote)
			quotes.POST("/:id/accept", clientOnly, quoteController.AcceptQuote)
			quotes.POST("/:id/reject", clientOnly, quoteController.RejectQuote)
			quotes.GET("/:id/view-pdf", quoteController.ViewPDF)
			quotes.GET("/:id/download-pdf", quoteController.DownloadPDF)
		}

		clients := protected.Group("/clients", artistOnly)
		{
			clients.GET("", clientController.GetClients)
			clients.POST("", clientController.CreateClient)
			clients.GET("/stats", clientController.GetClientStats)
			clients.GET("/:id", clientController.GetClient)
			clients.PUT("/:id", clientController.UpdateClient)
			clients.DELETE("/:id", clientController.DeleteClient)
		}

		projects := protected.Group("/projects")
		{
			projects.GET("", projectController.GetProjects)
			projects.GET("/:id", projectController.GetProject)
			projects.PUT("/:id", artistOnly, projectController.UpdateProject)
			projects.DELETE("/:id", artistOnly, projectController.DeleteProject)
			projects.POST("/:id/sessions", artistOnly, projectController.AddSession)
			projects.PUT("/:id/sessions/:sessionId", artistOnly, projectController.UpdateSessionStatus)
			projects.DELETE("/:id/sessions/:sessionId", artistOnly, projectController.RemoveSession)
		}

		events := protected.Group("/events")
		{
			events.GET("", eventController.GetEvents)
			events.POST("", eventController.CreateEvent)
			events.PUT("/:id", eventController.UpdateEvent)
			events.DELETE("/:id", eventController.DeleteEvent)
		}

		protected.GET("/dashboard", artistOnly, dashboardController.GetDashboardOverview)
		protected.GET("/reports", artistOnly, reportController.GetReportAnalytics)
	}

	return r
}
