package api

import (
	"github.com/Vinicius-jafe/bookish-broccoli/core"
	"github.com/gin-gonic/gin"
)

// audit records an admin action. Failing to record it never fails the request.
func (s *Server) audit(c *gin.Context, level, message string, options ...core.LogOption) {
	ctx := c.Request.Context()
	options = append(core.AuditOptions(ctx), options...)

	entry, err := core.NewLog(level, message, options...)
	if err != nil {
		s.logger.Warn("building audit log", "message", message, "error", err)
		return
	}

	s.logger.Info(message, "actor", entry.Actor, "context", entry.Context)
	if s.logs == nil {
		return
	}
	if err := s.logs.InsertLog(entry); err != nil {
		s.logger.Warn("writing audit log", "message", message, "error", err)
	}
}
