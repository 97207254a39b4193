package lwmd

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPParseRequest configures HTTPParse.
type HTTPParseRequest struct {
	URL     string
	Client  *http.Client
	Sink    Sink
	Options []Option
}

// HTTPParse fetches a document over HTTP(S) and streams structural commands
// to a sink as the body arrives.
func HTTPParse(ctx context.Context, req HTTPParseRequest) error {
	if req.URL == "" {
		return fmt.Errorf("stream http: URL is required")
	}
	if req.Sink == nil {
		return fmt.Errorf("stream http: Sink is nil")
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
		return fmt.Errorf("stream http: build request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return fmt.Errorf("stream http: unsupported scheme %q", httpReq.URL.Scheme)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream http: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("stream http: status %s", resp.Status)
	}
	return Parse(ParseRequest{
		Reader:  resp.Body,
		Sink:    req.Sink,
		Options: req.Options,
	})
}
