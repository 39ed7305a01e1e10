package api

import (
	"errors"
	"net/http"

	"github.com/Vinicius-jafe/bookish-broccoli/core"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
	"github.com/gin-gonic/gin"
)

func (s *Server) getBanner(c *gin.Context) {
	current, err := s.banner.Current(c.Request.Context())
	if errors.Is(err, domain.ErrNoBanner) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No banner image found"})
		return
	}
	if err != nil {
		s.bannerError(c, err, "Erro ao buscar banner")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"imageUrl":  current.URL,
		"updatedAt": current.UpdatedAt,
	})
}

func (s *Server) replaceBanner(c *gin.Context) {
	file, err := c.FormFile("banner")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		err = upload.ErrNoFiles
	}
	if err != nil {
		s.bannerError(c, err, "Erro ao processar o arquivo")
		return
	}

	replaced, err := s.banner.Replace(c.Request.Context(), file)
	if err != nil {
		s.bannerError(c, err, "Erro ao processar o arquivo")
		return
	}

	s.audit(c, "INFO", "banner replaced", core.LogWithContext(map[string]any{"file": replaced.Filename}))
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Banner atualizado com sucesso",
		"imageUrl": replaced.URL,
	})
}
