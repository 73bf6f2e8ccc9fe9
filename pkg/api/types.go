package api

// StatusResponse summarizes the live bot state.
type StatusResponse struct {
	Address    string `json:"address"`
	Market     string `json:"market"`
	AssetID    string `json:"asset_id"`
	Inventory  string `json:"inventory"`
	BestBid    string `json:"best_bid"`
	BestAsk    string `json:"best_ask"`
	OpenOrders int    `json:"open_orders"`
	RiskPaused bool   `json:"risk_paused"`
	UptimeSecs int64  `json:"uptime_secs"`
}

// OrderInfo is one tracked resting order.
type OrderInfo struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
}

// FillInfo is one recorded fill.
type FillInfo struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	TS      int64  `json:"ts"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
