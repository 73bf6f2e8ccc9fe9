package clob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetPositions fetches holdings for a wallet from the data API. The data
// API is public, so no auth headers are attached. Market may be empty to
// query all positions of the user.
func (c *Client) GetPositions(ctx context.Context, user, market string) ([]Position, error) {
	query := url.Values{"user": []string{user}}
	if market != "" {
		query.Set("market", market)
	}

	var positions []Position
	if err := c.doJSON(ctx, http.MethodGet, c.dataAPIHost, endpointPositions, query, nil, nil, &positions); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return positions, nil
}
