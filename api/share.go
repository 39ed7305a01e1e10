package api

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/gin-gonic/gin"
	"github.com/yosssi/gohtml"
)

// sharePageTemplate is served to link previews; browsers are redirected to the app route.
var sharePageTemplate = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:type" content="website">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
{{if .Image}}<meta property="og:image" content="{{.Image}}">{{end}}
<meta property="og:url" content="{{.URL}}">
<link rel="canonical" href="{{.URL}}">
{{if .Redirect}}<meta http-equiv="refresh" content="0; url={{.URL}}">{{end}}
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Description}}</p>
<a href="{{.URL}}">Ver pacote</a>
</body>
</html>`))

var notFoundPageTemplate = template.Must(template.New("not-found").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Pacote não encontrado</title>
</head>
<body>
<h1>Pacote não encontrado</h1>
<a href="{{.}}">Ver todos os pacotes</a>
</body>
</html>`))

type sharePage struct {
	Title       string
	Description string
	Image       string
	URL         string
	Redirect    bool // false when URL points back at this server
}

// requestOrigin returns the scheme and host the request was addressed to.
// It comes from client-controlled headers and only ever disables the redirect.
func requestOrigin(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if forwarded := req.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return scheme + "://" + req.Host
}

// sameOrigin reports whether both URLs share scheme, host and port.
func sameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil || ua.Host == "" {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil || ub.Host == "" {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Hostname(), ub.Hostname()) &&
		effectivePort(ua) == effectivePort(ub)
}

func effectivePort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return port
	}
	if strings.EqualFold(u.Scheme, "https") {
		return "443"
	}
	return "80"
}

// newSharePage builds the preview of pkg. Relative upload paths are made absolute with
// apiURL; without one they stay relative.
func newSharePage(pkg *domain.Package, publicURL, apiURL string) sharePage {
	page := sharePage{
		Title:       pkg.Title,
		Description: pkg.ShortDescription,
		URL:         publicURL + "/pacotes/" + url.PathEscape(pkg.Slug),
		Redirect:    !sameOrigin(publicURL, apiURL),
	}
	if page.Description == "" {
		page.Description = pkg.Destination
	}
	if len(pkg.Images) > 0 {
		page.Image = pkg.Images[0]
		if strings.HasPrefix(page.Image, "/") {
			page.Image = apiURL + page.Image
		}
	}
	return page
}

func renderHTML(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return gohtml.FormatBytes(buf.Bytes()), nil
}

func (s *Server) sharePage(c *gin.Context) {
	pkg, err := s.packages.GetPackageBySlug(c.Param("slug"))
	if errors.Is(err, domain.ErrPackageNotFound) {
		body, renderErr := renderHTML(notFoundPageTemplate, s.publicURL+"/pacotes")
		if renderErr != nil {
			s.packageError(c, renderErr, "Erro ao gerar página")
			return
		}
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", body)
		return
	}
	if err != nil {
		s.packageError(c, err, "Erro ao buscar pacote")
		return
	}

	page := newSharePage(pkg, s.publicURL, s.apiURL)
	if page.Redirect && sameOrigin(page.URL, requestOrigin(c.Request)) {
		s.logger.Warn("public url points at the api, not redirecting share page", "public_url", s.publicURL)
		page.Redirect = false
	}

	body, err := renderHTML(sharePageTemplate, page)
	if err != nil {
		s.packageError(c, err, "Erro ao gerar página")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}
