package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neo/personasim/internal/database"
	"github.com/patrickmn/go-cache"
)

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListSessions(c *gin.Context) {
	params := GetPaginationParams(c)
	filter, err := GetSessionFilter(c, params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessions, total, err := s.db.ListSessions(c.Request.Context(), filter)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		c.Error(err)
		return
	}
	if sessions == nil {
		sessions = []*database.SessionSummary{}
	}

	params.Total = total
	SendPaginatedResponse(c, params, sessions)
}

func (s *Server) handleSessionRecords(c *gin.Context) {
	id := c.Param("id")
	records, err := s.db.SessionRecords(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		c.Status(http.StatusInternalServerError)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"records":    records,
	})
}

const statsCacheKey = "stats"

func (s *Server) handleStats(c *gin.Context) {
	if cached, found := s.cache.Get(statsCacheKey); found {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, cached)
		return
	}

	stats, err := s.db.Stats(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		c.Error(err)
		return
	}

	s.cache.Set(statsCacheKey, stats, cache.DefaultExpiration)
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, stats)
}
