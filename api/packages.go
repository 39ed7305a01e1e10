package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Vinicius-jafe/bookish-broccoli/core"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
	"github.com/gin-gonic/gin"
)

// packageQuery is the query string of the public packages page. tipo and type are aliases.
type packageQuery struct {
	Tipo        string `form:"tipo" binding:"omitempty,oneof=nacional internacional"`
	Type        string `form:"type" binding:"omitempty,oneof=nacional internacional"`
	Region      string `form:"region"`
	Month       string `form:"month"`
	Term        string `form:"q"`
	MinDuration int    `form:"minDuration" binding:"min=0"`
	MaxDuration int    `form:"maxDuration" binding:"min=0"`
	Featured    bool   `form:"featured"`
}

// parseFilter reads the catalog filters used by the public packages page from the query string.
func parseFilter(c *gin.Context) (domain.PackageFilter, error) {
	var query packageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return domain.PackageFilter{}, bindError(err, "Parâmetros de busca inválidos")
	}

	packageType := query.Tipo
	if packageType == "" {
		packageType = query.Type
	}
	return domain.PackageFilter{
		Type:         domain.PackageType(packageType),
		Region:       strings.TrimSpace(query.Region),
		Month:        strings.TrimSpace(query.Month),
		Term:         strings.TrimSpace(query.Term),
		MinDuration:  query.MinDuration,
		MaxDuration:  query.MaxDuration,
		FeaturedOnly: query.Featured,
	}, nil
}

func (s *Server) listPackages(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.packageError(c, err, "Erro ao listar pacotes")
		return
	}

	packages, err := s.packages.GetPackages(filter)
	if err != nil {
		s.packageError(c, err, "Erro ao listar pacotes")
		return
	}
	for _, pkg := range packages {
		pkg.Normalize()
	}
	c.JSON(http.StatusOK, packages)
}

func (s *Server) getPackage(c *gin.Context) {
	pkg, err := s.packages.GetPackageBySlug(c.Param("slug"))
	if err != nil {
		s.packageError(c, err, "Erro ao buscar pacote")
		return
	}
	pkg.Normalize()
	c.JSON(http.StatusOK, pkg)
}

func (s *Server) upsertPackage(c *gin.Context) {
	var pkg domain.Package
	if err := c.ShouldBindJSON(&pkg); err != nil {
		s.packageError(c, invalid("Dados do pacote inválidos"), "Erro ao salvar pacote")
		return
	}

	pkg.Title = strings.TrimSpace(pkg.Title)
	pkg.Slug = strings.TrimSpace(pkg.Slug)
	if pkg.Title == "" && pkg.Slug == "" {
		s.packageError(c, invalid("Informe o título do pacote"), "Erro ao salvar pacote")
		return
	}
	pkg.Normalize()

	if err := s.hooks.BeforeSave(c.Request.Context(), &pkg); err != nil {
		s.packageError(c, err, "Erro ao salvar pacote")
		return
	}

	slug, err := s.packages.UpsertPackage(&pkg)
	if err != nil {
		s.packageError(c, err, "Erro ao salvar pacote")
		return
	}

	s.audit(c, "INFO", "package saved",
		core.LogWithPackageID(pkg.ID),
		core.LogWithContext(map[string]any{"slug": slug, "title": pkg.Title}),
	)
	c.JSON(http.StatusOK, gin.H{"ok": true, "slug": slug, "id": pkg.ID})
}

func (s *Server) deletePackage(c *gin.Context) {
	id := c.Param("id")
	if err := s.packages.DeletePackage(id); err != nil {
		s.packageError(c, err, "Erro ao deletar pacote")
		return
	}

	s.audit(c, "INFO", "package deleted", core.LogWithPackageID(id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) uploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		err = upload.ErrNoFiles
	}
	if err != nil {
		s.packageError(c, err, "Erro interno ao salvar imagens.")
		return
	}

	paths, err := s.uploader.Save(form.File[s.uploader.Policy().Field])
	if err != nil {
		s.packageError(c, err, "Erro interno ao salvar imagens.")
		return
	}

	s.audit(c, "INFO", "images uploaded", core.LogWithContext(map[string]any{"paths": paths}))
	c.JSON(http.StatusOK, gin.H{"ok": true, "paths": paths})
}
