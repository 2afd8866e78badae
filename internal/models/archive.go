package models

import "time"

// TradeSnapshotRecord stores one upstream fetch for later history queries.
type TradeSnapshotRecord struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	FetchTime    time.Time `json:"fetch_time" gorm:"index;not null"`
	StationCount int       `json:"station_count"`
	ItemCount    int       `json:"item_count"`
	Payload      string    `json:"-" gorm:"type:longtext"`
	CreatedAt    time.Time `json:"created_at"`

	Points []TradePricePoint `json:"points,omitempty" gorm:"foreignKey:SnapshotID"`
}

// TradePricePoint is one buy offer of an archived snapshot.
type TradePricePoint struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SnapshotID uint      `json:"snapshot_id" gorm:"index;not null"`
	StationID  string    `json:"station_id" gorm:"size:64;index:idx_tpp_item_station"`
	ItemID     string    `json:"item_id" gorm:"size:64;index:idx_tpp_item_station"`
	Price      float64   `json:"price"`
	Quota      float64   `json:"quota"`
	IsRise     int       `json:"is_rise"`
	IsRare     int       `json:"is_rare"`
	FetchTime  time.Time `json:"fetch_time" gorm:"index"`
}

func (TradeSnapshotRecord) TableName() string { return "trade_snapshots" }

func (TradePricePoint) TableName() string { return "trade_price_points" }
