package utils

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/paygate/backend/services/common/errors"
	"go.uber.org/zap"
)

var hopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

type Forwarder struct {
	client *http.Client
	logger *zap.Logger
}

func NewForwarder(timeout time.Duration, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{client: &http.Client{Timeout: timeout}, logger: logger}
}

type ForwardOptions struct {
	TargetURL string
	// Service names the upstream in error messages.
	Service string
}

// Forward proxies the current request to opts.TargetURL and streams the
// upstream answer back unchanged. Transport failures become 503.
func (f *Forwarder) Forward(c *gin.Context, opts ForwardOptions) {
	targetURL := opts.TargetURL
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	f.logger.Info("Forwarding request",
		zap.String("method", c.Request.Method),
		zap.String("url", targetURL),
	)

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, c.Request.Body)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal(err))
		return
	}
	req.ContentLength = c.Request.ContentLength
	copyHeaders(req.Header, c.Request.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("Failed to forward request", zap.String("service", opts.Service), zap.Error(err))
		apperrors.Respond(c, apperrors.Unavailable(opts.Service+" unavailable", err))
		return
	}
	defer resp.Body.Close()

	WriteResponseHeaders(c, resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		f.logger.Error("Failed to copy response body", zap.Error(err))
	}
}

// Do sends body to url with the given headers and returns the buffered answer.
func (f *Forwarder) Do(ctx context.Context, method, url string, body []byte, header http.Header) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	copyHeaders(req.Header, header)
	req.Header.Del("Content-Length")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, data, nil
}

func copyHeaders(dst, src http.Header) {
	for k, v := range src {
		if hopByHop[strings.ToLower(k)] {
			continue
		}
		dst[k] = append([]string(nil), v...)
	}
}

// WriteResponseHeaders copies upstream headers, skipping CORS headers (the
// gateway sets its own) and hop-by-hop headers.
func WriteResponseHeaders(c *gin.Context, header http.Header) {
	for k, v := range header {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "access-control-") || hopByHop[lower] || lower == "content-length" {
			continue
		}
		c.Header(k, strings.Join(v, ","))
	}
}
