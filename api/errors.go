package api

import (
	"errors"
	"net/http"

	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/core"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/hooks"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// badRequest is a validation failure whose message is shown to the caller as is.
type badRequest struct {
	message string
}

func (e *badRequest) Error() string {
	return e.message
}

func invalid(message string) error {
	return &badRequest{message: message}
}

// fieldMessages are the caller-facing messages for fields rejected by binding tags.
var fieldMessages = map[string]string{
	"Email":       "Informe e-mail e senha",
	"Password":    "Informe e-mail e senha",
	"Tipo":        "Tipo de pacote inválido. Use nacional ou internacional.",
	"Type":        "Tipo de pacote inválido. Use nacional ou internacional.",
	"MinDuration": "Parâmetro minDuration inválido",
	"MaxDuration": "Parâmetro maxDuration inválido",
	"Limit":       "Parâmetro limit inválido",
}

func validationMessage(fieldErr validator.FieldError) string {
	if message, ok := fieldMessages[fieldErr.Field()]; ok {
		return message
	}
	return "Campo " + fieldErr.Field() + " inválido"
}

// bindError keeps validator errors for classify and turns decoding failures (malformed
// JSON, a non-numeric query value) into a bad request with message.
func bindError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return err
	}
	return invalid(message)
}

// classify maps an error to a status and a caller-facing message.
// Unknown errors become 500 with the fallback message.
func classify(err error, fallback string) (int, string) {
	var validation *badRequest
	var tooLarge *http.MaxBytesError
	var rejection *hooks.Rejection
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.message
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		return http.StatusBadRequest, validationMessage(fieldErrs[0])
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Arquivo excede o tamanho máximo permitido"
	case errors.Is(err, domain.ErrPackageNotFound):
		return http.StatusNotFound, "Pacote não encontrado"
	case errors.Is(err, domain.ErrNoBanner):
		return http.StatusNotFound, "No banner image found"
	case errors.Is(err, domain.ErrSlugTaken):
		return http.StatusConflict, "Já existe outro pacote com este slug"
	case errors.Is(err, domain.ErrInvalidPackageType):
		return http.StatusBadRequest, "Tipo de pacote inválido. Use nacional ou internacional."
	case errors.Is(err, upload.ErrInvalidType):
		return http.StatusBadRequest, "Formato de arquivo inválido. Apenas JPEG, PNG, GIF e WEBP são permitidos."
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "Arquivo excede o tamanho máximo permitido"
	case errors.Is(err, upload.ErrTooManyFiles):
		return http.StatusBadRequest, "Número máximo de arquivos excedido"
	case errors.Is(err, upload.ErrNoFiles):
		return http.StatusBadRequest, "Nenhum arquivo enviado"
	case errors.As(err, &rejection):
		return http.StatusBadRequest, "Pacote rejeitado: " + rejection.Reason
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "E-mail ou senha inválidos"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "Token inválido"
	default:
		return http.StatusInternalServerError, fallback
	}
}

// respond classifies err, logs server-side failures and writes the body built by shape.
func (s *Server) respond(c *gin.Context, err error, fallback string, shape func(message string) gin.H) {
	status, message := classify(err, fallback)

	if status >= http.StatusInternalServerError {
		attrs := []any{"path", c.Request.URL.Path, "error", err}
		if id, ok := core.RequestIDFromContext(c.Request.Context()); ok {
			attrs = append(attrs, "request_id", id.String())
		}
		s.logger.Error(fallback, attrs...)
	}
	c.Error(err)

	body := shape(message)
	if !s.production {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// packageError answers with the {"error": msg} shape used by package, auth and admin routes.
func (s *Server) packageError(c *gin.Context, err error, fallback string) {
	s.respond(c, err, fallback, func(message string) gin.H {
		return gin.H{"error": message}
	})
}

// bannerError answers with the {"success": false, "message": msg} shape used by banner routes.
func (s *Server) bannerError(c *gin.Context, err error, fallback string) {
	s.respond(c, err, fallback, func(message string) gin.H {
		if errors.Is(err, upload.ErrInvalidType) {
			message = "Apenas arquivos de imagem são permitidos"
		}
		return gin.H{"success": false, "message": message}
	})
}
