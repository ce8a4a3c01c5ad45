package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/ai"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// InsightsAPI proxies mood and CBT insight generation. Request and
// response shapes match the serverless functions this service replaces.
type InsightsAPI struct {
	insights *ai.Insights
	logger   *zap.Logger
}

// NewInsightsAPI creates a new insights API
func NewInsightsAPI(insights *ai.Insights) *InsightsAPI {
	return &InsightsAPI{
		insights: insights,
		logger:   logging.WithComponent("insights-api"),
	}
}

type moodInsightRequest struct {
	MoodText      string `json:"moodText"`
	SelectedEmoji string `json:"selectedEmoji"`
}

// available rejects requests up front when no AI credential is
// configured
func (a *InsightsAPI) available(c *gin.Context) bool {
	if a.insights == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI insights are not configured"})
		return false
	}
	return true
}

// MoodInsights handles POST /functions/mood-insights
func (a *InsightsAPI) MoodInsights(c *gin.Context) {
	if !a.available(c) {
		return
	}
	var req moodInsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	insight, err := a.insights.MoodInsight(c.Request.Context(), req.MoodText, req.SelectedEmoji)
	if err != nil {
		a.logger.Error("Mood insight failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"insight": insight})
}

type cbtInsightRequest struct {
	Mode             string        `json:"mode"`
	Situation        string        `json:"situation"`
	AutomaticThought string        `json:"automaticThought"`
	Emotion          string        `json:"emotion"`
	Distortion       string        `json:"distortion"`
	Entries          []ai.CBTEntry `json:"entries"`
}

// CBTInsights handles POST /functions/cbt-insights. Mode selects the
// coach (single-record reframe) or patterns (cross-record summary)
// flow; anything else is a 400.
func (a *InsightsAPI) CBTInsights(c *gin.Context) {
	if !a.available(c) {
		return
	}
	var req cbtInsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	switch req.Mode {
	case "coach":
		suggestion, err := a.insights.CoachSuggestion(c.Request.Context(),
			req.Situation, req.AutomaticThought, req.Emotion, req.Distortion)
		if err != nil {
			a.logger.Error("CBT coach suggestion failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected error", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})

	case "patterns":
		summary, err := a.insights.PatternSummary(c.Request.Context(), req.Entries)
		if err != nil {
			a.logger.Error("CBT pattern summary failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected error", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mode. Use 'coach' or 'patterns'."})
	}
}
