// Package api exposes the catalog over HTTP with gin.
//
// Reads are open; every route that changes the catalog, uploads files or reveals admin
// data sits behind auth.RequireAuth. Package routes answer errors as {"error": msg} and
// banner routes as {"success": false, "message": msg}, matching what the web client reads.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/banner"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/hooks"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file size ceilings for boundaries and headers.
const multipartOverhead = 1 << 20

// Config carries the collaborators and settings of the HTTP surface.
type Config struct {
	Packages domain.PackageRepository
	Stats    domain.StatsRepository
	Logs     domain.LogRepository
	Banner   *banner.Store
	Uploader *upload.Uploader
	Auth     *auth.Service
	Hooks    *hooks.Runner // optional
	Logger   *slog.Logger  // optional

	Production  bool     // hides error details from responses
	PublicURL   string   // base URL of the public site, used in the sitemap and share pages
	APIURL      string   // base URL of this API, used to make upload paths absolute in share pages
	UploadDir   string   // directory served under /uploads and /api/uploads
	CORSOrigins []string // allowed origins; empty or "*" allows every origin
}

// Server is the HTTP surface of the catalog.
type Server struct {
	packages   domain.PackageRepository
	stats      domain.StatsRepository
	logs       domain.LogRepository
	banner     *banner.Store
	uploader   *upload.Uploader
	auth       *auth.Service
	hooks      *hooks.Runner
	logger     *slog.Logger
	production bool
	publicURL  string
	apiURL     string
	uploadDir  string

	router *gin.Engine
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Packages == nil:
		return nil, errors.New("api: package repository is required")
	case cfg.Stats == nil:
		return nil, errors.New("api: stats repository is required")
	case cfg.Banner == nil:
		return nil, errors.New("api: banner store is required")
	case cfg.Uploader == nil:
		return nil, errors.New("api: uploader is required")
	case cfg.Auth == nil:
		return nil, errors.New("api: auth service is required")
	case cfg.UploadDir == "":
		return nil, errors.New("api: upload dir is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		packages:   cfg.Packages,
		stats:      cfg.Stats,
		logs:       cfg.Logs,
		banner:     cfg.Banner,
		uploader:   cfg.Uploader,
		auth:       cfg.Auth,
		hooks:      cfg.Hooks,
		logger:     logger,
		production: cfg.Production,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		uploadDir:  cfg.UploadDir,
	}
	s.router = s.routes(cfg.CORSOrigins)
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(origins []string) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(s.requestID(), s.accessLog(), compress(), s.recovery(), cors.New(corsConfig(origins)))

	router.GET("/healthz", s.health)
	router.GET("/sitemap.xml", s.sitemap)
	router.GET("/pacotes/:slug", s.sharePage)
	router.Static("/uploads", s.uploadDir)
	router.Static("/api/uploads", s.uploadDir)

	policy := s.uploader.Policy()
	imagesLimit := int64(policy.MaxFiles)*policy.MaxSize + multipartOverhead
	bannerLimit := s.banner.MaxSize() + multipartOverhead

	api := router.Group("/api")
	api.GET("/packages", s.listPackages)
	api.GET("/packages/:slug", s.getPackage)
	api.GET("/banner", s.getBanner)
	api.POST("/auth/login", s.login)

	admin := api.Group("", s.auth.RequireAuth(), withActor())
	admin.POST("/packages", s.upsertPackage)
	admin.DELETE("/packages/:id", s.deletePackage)
	admin.POST("/packages/upload-images", limitBody(imagesLimit), s.uploadImages)
	admin.POST("/banner", limitBody(bannerLimit), s.replaceBanner)
	admin.GET("/auth/me", s.me)
	admin.GET("/admin/stats", s.catalogStats)
	admin.GET("/admin/logs", s.auditLogs)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rota não encontrada"})
	})
	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowed = nil
			break
		}
		if origin != "" {
			allowed = append(allowed, strings.TrimRight(origin, "/"))
		}
	}
	if len(allowed) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowed
	}
	return config
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
