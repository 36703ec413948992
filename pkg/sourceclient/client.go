// Package sourceclient implements the typed HTTP operations used to
// talk to a source cluster's extended S3-compatible API: partition lookup,
// object listing, object metadata, and the raft log tail read.
//
// All four operations share one *http.Client with a keep-alive transport,
// owned exclusively by one reader.
package sourceclient

import (
	"fmt"
	"net/http"
	"time"
)

// Client is a per-source HTTP client. It is not safe to share across
// sources with different credentials; each reader owns one.
type Client struct {
	cfg        Config
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a Client for cfg with a keep-alive transport sized for
// one reader's sequential batch-cycle traffic.
func NewClient(cfg Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	scheme := "http"
	if cfg.HTTPS {
		scheme = "https"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			// The log read has no timeout (an arbitrarily large log is
			// expected); callers bound readLog through ctx, not through
			// this client's Timeout.
		},
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port),
	}
}

// Close releases idle connections held by the client's transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
