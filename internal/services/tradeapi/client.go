package tradeapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")
	ErrEmptyBody      = errors.New("upstream returned an empty body")
	ErrMalformed      = errors.New("upstream payload is malformed")
)

// Client fetches the raw trade document from the upstream trade API.
type Client struct {
	url    string
	client *resty.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{url: url, client: client}
}

// FetchRaw returns the response body of one upstream request.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("request trade api: %w", err)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}
