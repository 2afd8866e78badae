package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

// Endpoints locates the trade API and the two reference documents.
type Endpoints struct {
	Trade       string
	Commodities string
	Stations    string
}

// EndpointsFor derives the default endpoints served by the trade API.
func EndpointsFor(serverURL string) Endpoints {
	return Endpoints{
		Trade:       serverURL + "/api/trade",
		Commodities: serverURL + "/db/" + refdata.CommodityFile,
		Stations:    serverURL + "/db/" + refdata.StationFile,
	}
}

// Client talks to the trade API over HTTP.
type Client struct {
	endpoints Endpoints
	client    *resty.Client
}

func NewClient(endpoints Endpoints, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{endpoints: endpoints, client: client}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}

func (c *Client) Trade(ctx context.Context) (*models.TradeSnapshot, error) {
	body, err := c.get(ctx, c.endpoints.Trade)
	if err != nil {
		return nil, err
	}
	var snap models.TradeSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode trade snapshot: %w", err)
	}
	return &snap, nil
}

func (c *Client) CommodityNames(ctx context.Context) (refdata.Names, error) {
	return c.names(ctx, c.endpoints.Commodities, refdata.Commodities)
}

func (c *Client) StationNames(ctx context.Context) (refdata.Names, error) {
	return c.names(ctx, c.endpoints.Stations, refdata.Stations)
}

func (c *Client) names(ctx context.Context, url string, table refdata.Table) (refdata.Names, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return refdata.Names{}, err
	}
	return refdata.Parse(body, table)
}
