package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acsclub/clubnews/internal/domain"
)

func (s *Server) latestNews(c *gin.Context) {
	news, err := s.aggregator.LatestNews(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to load latest news", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to fetch news",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    news,
	})
}

func (s *Server) history(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	category, ok := parseCategory(c.Query("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "category must be Global or Regional",
		})
		return
	}

	items, total, err := s.store.History(c.Request.Context(), page, limit, category)
	if err != nil {
		s.logger.Error("failed to load news history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to fetch news history",
		})
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

func (s *Server) aggregate(c *gin.Context) {
	s.logger.Info("manual news aggregation triggered by admin")

	run, err := s.aggregator.AggregateWeeklyNews(c.Request.Context())
	if err != nil {
		s.logger.Error("news aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "news aggregation failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    run,
		"message": "news aggregation completed",
	})
}

func (s *Server) sendDigest(c *gin.Context) {
	s.logger.Info("manual digest sending triggered by admin")
	ctx := c.Request.Context()

	news, err := s.aggregator.LatestNews(ctx)
	if err != nil {
		s.logger.Error("failed to load news for digest", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to load news for digest",
		})
		return
	}
	if len(news.Global) == 0 && len(news.Regional) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "no news available to send, run aggregation first",
		})
		return
	}

	week := domain.WeekKey{Number: news.WeekNumber, Year: news.Year}
	summary, err := s.dispatcher.SendDigestToAll(ctx, news.Global, news.Regional, week)
	if err != nil {
		var lookupErr *domain.RecipientLookupError
		status := http.StatusInternalServerError
		if errors.As(err, &lookupErr) {
			s.logger.Error("recipient lookup failed", "error", lookupErr.Err)
		} else {
			s.logger.Error("digest dispatch failed", "error", err)
		}
		c.JSON(status, gin.H{
			"success": false,
			"message": "failed to send digest emails",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
		"message": "digest emails processed",
	})
}

func (s *Server) testEmail(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&body)

	email := strings.TrimSpace(body.Email)
	if email == "" {
		email = s.adminEmail
	}
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "no target email: provide one in the body or configure adminEmail",
		})
		return
	}

	ctx := c.Request.Context()
	news, err := s.aggregator.LatestNews(ctx)
	if err != nil {
		s.logger.Error("failed to load news for test email", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to load news for test email",
		})
		return
	}

	week := domain.WeekKey{Number: news.WeekNumber, Year: news.Year}
	result := s.dispatcher.SendTestDigest(ctx, email, news.Global, news.Regional, week)

	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"data":    result,
		"message": "test email processed for " + email,
	})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context(), s.aggregator.CurrentWeek())
	if err != nil {
		s.logger.Error("failed to load news stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to fetch statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

func (s *Server) health(c *gin.Context) {
	dbStatus := "connected"
	if err := s.store.Ping(c.Request.Context()); err != nil {
		dbStatus = "disconnected"
	}

	payload := gin.H{
		"database": dbStatus,
		"mail":     s.mailMode,
	}
	if s.scheduler != nil {
		payload["jobs"] = s.scheduler.Status()
	}

	status := http.StatusOK
	if dbStatus != "connected" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, payload)
}

func parseCategory(raw string) (domain.Category, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", true
	case "global":
		return domain.CategoryGlobal, true
	case "regional":
		return domain.CategoryRegional, true
	default:
		return "", false
	}
}
