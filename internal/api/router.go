package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/ai"
	"github.com/serene-app/serene-backend/internal/cache"
	"github.com/serene-app/serene-backend/internal/db"
	"github.com/serene-app/serene-backend/internal/feed"
	"github.com/serene-app/serene-backend/internal/realtime"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// Router sets up API routes
type Router struct {
	db       *db.DB
	cache    *cache.Cache
	broker   realtime.Broker
	insights *ai.Insights
	pageSize int
	logger   *zap.Logger
}

// NewRouter creates a new API router. insights may be nil when no AI
// credential is configured; the insight endpoints then return errors
// and saves skip enrichment.
func NewRouter(database *db.DB, redisCache *cache.Cache, broker realtime.Broker, insights *ai.Insights, pageSize int) *Router {
	return &Router{
		db:       database,
		cache:    redisCache,
		broker:   broker,
		insights: insights,
		pageSize: pageSize,
		logger:   logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(CORS())
	engine.Use(Identity())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	repo := db.NewRepository(r.db.DB)
	profiles := db.NewProfileRepository(repo)

	feedAPI := NewFeedAPI(feed.NewService(repo, r.broker, r.pageSize), r.broker)
	wellnessAPI := NewWellnessAPI(repo, r.insights)
	insightsAPI := NewInsightsAPI(r.insights)
	adminAPI := NewAdminAPI(repo)

	// Community feed. Reads are open, writes need a signed-in viewer.
	engine.GET("/api/feed", feedAPI.GetFeed)
	engine.GET("/api/feed/stream", feedAPI.StreamFeed)
	engine.GET("/api/posts/:id/comments", feedAPI.GetComments)

	authed := engine.Group("/", RequireViewer())
	authed.POST("/api/posts", feedAPI.CreatePost)
	authed.POST("/api/posts/:id/like", feedAPI.Like)
	authed.DELETE("/api/posts/:id/like", feedAPI.Unlike)
	authed.POST("/api/posts/:id/comments", feedAPI.CreateComment)

	// Personal wellness data
	authed.GET("/api/moods", wellnessAPI.ListMoods)
	authed.POST("/api/moods", wellnessAPI.CreateMood)
	authed.GET("/api/journal", wellnessAPI.ListJournal)
	authed.POST("/api/journal", wellnessAPI.CreateJournal)
	authed.GET("/api/thoughts", wellnessAPI.ListThoughts)
	authed.POST("/api/thoughts", wellnessAPI.CreateThought)
	authed.GET("/api/habits", wellnessAPI.ListHabits)
	authed.POST("/api/habits", wellnessAPI.CreateHabit)
	authed.POST("/api/habits/:id/complete", wellnessAPI.CompleteHabit)

	// AI proxy endpoints, same request and response shapes the app's
	// edge functions used
	engine.POST("/functions/mood-insights", insightsAPI.MoodInsights)
	engine.POST("/functions/cbt-insights", insightsAPI.CBTInsights)

	admin := engine.Group("/api/admin", RequireAdmin(profiles))
	admin.GET("/users", adminAPI.ListUsers)
	admin.PUT("/users/:id/role", adminAPI.SetRole)
	admin.POST("/moderation/:id", adminAPI.ModeratePost)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "serene-api",
	})
}
