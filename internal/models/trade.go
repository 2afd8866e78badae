package models

import (
	"encoding/json"
	"time"
)

// Item sides as tagged by the upstream flattening.
const (
	SideSell = "sell"
	SideBuy  = "buy"
)

// Commodity is one raw price record of the upstream feed.
type Commodity struct {
	Price    float64 `json:"price"`
	IsRise   int     `json:"is_rise"`  // 价格变动倾向
	Quota    float64 `json:"quota"`    // >1 有利, <1 不利
	IsRare   int     `json:"is_rare"`  // 特产品
	Ti       int64   `json:"ti,omitempty"`
	Stock    int     `json:"stock,omitempty"`
	NotNum   int     `json:"not_num,omitempty"`
	Trend    int     `json:"trend"`
	TradeNum int     `json:"trade_num,omitempty"`
}

// Direction reports the rise signal of the record. is_rise is authoritative;
// the upstream trend field is carried raw only.
func (c Commodity) Direction() Trend {
	return TrendFromFlag(c.IsRise)
}

// TradeItem is a commodity record tagged with where it was observed.
type TradeItem struct {
	Type      string `json:"type"`
	StationID string `json:"stationId"`
	ItemID    string `json:"itemId"`
	Commodity
}

// Station is the flattened per-station snapshot served by GET /api/trade.
type Station struct {
	StationID  string          `json:"stationId"`
	DevDegree  *float64        `json:"dev_degree,omitempty"`
	Recyclable json.RawMessage `json:"recyclable,omitempty"`
	SellItems  []TradeItem     `json:"sellItems"`
	BuyItems   []TradeItem     `json:"buyItems"`
}

// TradeSnapshot is the full response of GET /api/trade.
type TradeSnapshot struct {
	Stations  []Station `json:"stations"`
	FetchTime time.Time `json:"fetchTime"`
}

// StationIDs returns the distinct station ids in snapshot order.
func (s *TradeSnapshot) StationIDs() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.Stations))
	ids := make([]string, 0, len(s.Stations))
	for _, st := range s.Stations {
		if _, ok := seen[st.StationID]; ok {
			continue
		}
		seen[st.StationID] = struct{}{}
		ids = append(ids, st.StationID)
	}
	return ids
}

// BestOffer is the highest buy offer for one commodity display name.
type BestOffer struct {
	GoodsJp   string  `json:"goodsJp"`
	ItemID    string  `json:"itemId"`
	StationID string  `json:"stationId"`
	Price     float64 `json:"price"`
	IsRise    int     `json:"is_rise"`
	Quota     float64 `json:"quota"`
	Trend     int     `json:"trend"`
	IsRare    int     `json:"is_rare"`
	Direction Trend   `json:"direction"`
}

// FavoriteKey is the card-view favorite key: the offer is tied to its station.
func (o BestOffer) FavoriteKey() string {
	return o.StationID + "-" + o.GoodsJp
}
