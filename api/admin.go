package api

import (
	"net/http"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/core"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type logsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

func (s *Server) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.packageError(c, bindError(err, "Informe e-mail e senha"), "Erro ao autenticar")
		return
	}

	token, err := s.auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		s.audit(c, "WARN", "login failed", core.LogWithContext(map[string]any{"email": body.Email}))
		s.packageError(c, err, "Erro ao autenticar")
		return
	}

	s.audit(c, "INFO", "admin logged in", core.LogWithActor(body.Email))
	c.JSON(http.StatusOK, gin.H{"token": token.Value, "expiresAt": token.ExpiresAt})
}

func (s *Server) me(c *gin.Context) {
	user, _ := auth.UserFromContext(c)
	claims, _ := auth.ClaimsFromContext(c)

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email, "expiresAt": expiresAt})
}

func (s *Server) catalogStats(c *gin.Context) {
	stats := domain.CatalogStats{ByType: map[domain.PackageType]int{}}
	var err error

	if stats.Packages, err = s.stats.CountPackages(); err != nil {
		s.packageError(c, err, "Erro ao carregar estatísticas")
		return
	}
	if stats.Featured, err = s.stats.CountFeatured(); err != nil {
		s.packageError(c, err, "Erro ao carregar estatísticas")
		return
	}
	byType, err := s.stats.CountByType()
	if err != nil {
		s.packageError(c, err, "Erro ao carregar estatísticas")
		return
	}
	for packageType, count := range byType {
		stats.ByType[packageType] = count
	}

	c.JSON(http.StatusOK, stats)
}

// logView is the JSON form of an audit entry.
type logView struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	RequestID *uuid.UUID     `json:"requestId,omitempty"`
	Actor     string         `json:"actor,omitempty"`
}

func (s *Server) auditLogs(c *gin.Context) {
	var query logsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.packageError(c, bindError(err, "Parâmetro limit inválido"), "Erro ao carregar logs")
		return
	}
	limit := defaultLogLimit
	if query.Limit > 0 {
		limit = min(query.Limit, maxLogLimit)
	}

	if s.logs == nil {
		c.JSON(http.StatusOK, []logView{})
		return
	}

	entries, err := s.logs.GetLogs(limit)
	if err != nil {
		s.packageError(c, err, "Erro ao carregar logs")
		return
	}

	views := make([]logView, len(entries))
	for i, entry := range entries {
		views[i] = logView{
			ID:        entry.ID,
			Timestamp: entry.Timestamp,
			Level:     entry.Level,
			Message:   entry.Message,
			Context:   entry.Context,
			RequestID: entry.RequestID,
			Actor:     entry.Actor,
		}
	}
	c.JSON(http.StatusOK, views)
}
