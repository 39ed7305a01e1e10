package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/core"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestID tags every request with a UUID, reusing a valid incoming X-Request-ID.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader("X-Request-ID"))
		if err != nil {
			id, err = uuid.NewV7()
			if err != nil {
				id = uuid.New()
			}
		}

		c.Request = core.ContextWithRequestID(c.Request, id)
		c.Request = core.ContextWithRequestTime(c.Request, time.Now())
		c.Header("X-Request-ID", id.String())
		c.Next()
	}
}

// accessLog replaces gin's logger with one structured line per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if id, ok := core.RequestIDFromContext(c.Request.Context()); ok {
			attrs = append(attrs, slog.String("request_id", id.String()))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		s.logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

// recovery turns a handler panic into a 500 and logs it with the stack.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.logger.Error("handler panic",
			"panic", fmt.Sprint(recovered),
			"path", c.Request.URL.Path,
			"stack", string(debug.Stack()),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erro interno"})
	})
}

// withActor copies the authenticated admin's email into the request context for audit logs.
func withActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := auth.ClaimsFromContext(c); ok {
			c.Request = core.ContextWithActor(c.Request, claims.Email)
		}
		c.Next()
	}
}

// limitBody caps the request body at n bytes.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// compressibleTypes are the content types worth compressing; images are already compressed.
var compressibleTypes = []string{
	"application/json",
	"application/xml",
	"application/javascript",
	"image/svg+xml",
	"text/",
}

func compressible(contentType string) bool {
	for _, prefix := range compressibleTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// brotliWriter decides on the first write whether the response is compressed.
type brotliWriter struct {
	gin.ResponseWriter
	request *http.Request
	encoder *brotli.Writer
	decided bool
}

func (w *brotliWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true

	header := w.Header()
	if header.Get("Content-Encoding") != "" ||
		w.Status() == http.StatusPartialContent ||
		w.request.Method == http.MethodHead ||
		!compressible(header.Get("Content-Type")) {
		return
	}

	header.Set("Content-Encoding", "br")
	header.Del("Content-Length")
	w.encoder = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	w.decide()
	if w.encoder == nil {
		return w.ResponseWriter.Write(data)
	}
	return w.encoder.Write(data)
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *brotliWriter) Flush() {
	if w.encoder != nil {
		w.encoder.Flush()
	}
	w.ResponseWriter.Flush()
}

// compress brotli-encodes text responses for clients that accept it.
func compress() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Vary", "Accept-Encoding")
		if !acceptsBrotli(c.GetHeader("Accept-Encoding")) {
			c.Next()
			return
		}

		writer := &brotliWriter{ResponseWriter: c.Writer, request: c.Request}
		c.Writer = writer
		defer func() {
			if writer.encoder != nil {
				writer.encoder.Close()
			}
		}()
		c.Next()
	}
}

func acceptsBrotli(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(coding) != "br" {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}
