package api

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/beevik/etree"
	"github.com/gin-gonic/gin"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// buildSitemap lists the home page, the catalog page and one entry per published package.
func buildSitemap(publicURL string, packages []*domain.Package) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	urlset := doc.CreateElement("urlset")
	urlset.CreateAttr("xmlns", sitemapNamespace)

	addURL := func(loc, changefreq, priority string) {
		entry := urlset.CreateElement("url")
		entry.CreateElement("loc").SetText(loc)
		entry.CreateElement("changefreq").SetText(changefreq)
		entry.CreateElement("priority").SetText(priority)
	}

	addURL(publicURL+"/", "weekly", "1.0")
	addURL(publicURL+"/pacotes", "daily", "0.9")
	for _, pkg := range packages {
		if pkg.Slug == "" {
			continue
		}
		addURL(publicURL+"/pacotes/"+url.PathEscape(pkg.Slug), "weekly", "0.8")
	}

	doc.Indent(2)
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s *Server) sitemap(c *gin.Context) {
	packages, err := s.packages.GetPackages(domain.PackageFilter{})
	if err != nil {
		s.packageError(c, err, "Erro ao gerar sitemap")
		return
	}

	body, err := buildSitemap(s.publicURL, packages)
	if err != nil {
		s.packageError(c, err, "Erro ao gerar sitemap")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}
