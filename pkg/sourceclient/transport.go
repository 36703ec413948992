package sourceclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) newRequest(ctx context.Context, method, path string, query map[string]string, body []byte) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("sourceclient: build request: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sourceclient: build request: %w", err)
	}
	if body != nil {
		req.Body = http.NoBody
	}

	if err := sign(ctx, req, c.cfg.Auth); err != nil {
		return nil, fmt.Errorf("sourceclient: sign request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return resp, nil
}
