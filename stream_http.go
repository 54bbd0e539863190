package htmd

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"
)

// HTTPConvertRequest configures HTTPConvert.
type HTTPConvertRequest struct {
	URL     string
	Client  *http.Client
	Writer  io.Writer
	Options []Option
}

// HTTPConvert fetches an HTML page over HTTP(S) and streams its Markdown to
// the writer. The body is decoded to UTF-8 from the declared or sniffed
// charset. Relative URLs resolve against the final response URL unless an
// origin option says otherwise.
func HTTPConvert(ctx context.Context, req HTTPConvertRequest) error {
	if req.URL == "" {
		return fmt.Errorf("convert http: URL is required")
	}
	if req.Writer == nil {
		return fmt.Errorf("convert http: Writer is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := req.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("convert http: build request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return fmt.Errorf("convert http: unsupported scheme %q", httpReq.URL.Scheme)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("convert http: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("convert http: status %s", resp.Status)
	}
	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("convert http: decode charset: %w", err)
	}
	origin := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		origin = resp.Request.URL.String()
	}
	opts := make([]Option, 0, len(req.Options)+1)
	opts = append(opts, WithOrigin(origin))
	opts = append(opts, req.Options...)
	return ConvertReader(req.Writer, body, opts...)
}
