package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"trade-viewer/internal/models"
)

// SnapshotArchive persists fetched trade snapshots.
type SnapshotArchive struct {
	db *gorm.DB
}

func NewSnapshotArchive(db *gorm.DB) *SnapshotArchive {
	return &SnapshotArchive{db: db}
}

// Archive stores the snapshot header and one price point per buy offer in a
// single transaction.
func (a *SnapshotArchive) Archive(ctx context.Context, snapshot *models.TradeSnapshot, raw []byte) error {
	points := PricePoints(snapshot)
	record := &models.TradeSnapshotRecord{
		FetchTime:    snapshot.FetchTime,
		StationCount: len(snapshot.Stations),
		ItemCount:    len(points),
		Payload:      string(raw),
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}
		for i := range points {
			points[i].SnapshotID = record.ID
		}
		return tx.CreateInBatches(points, 500).Error
	})
}

// History returns the archived buy prices of itemID since the given time,
// oldest first.
func (a *SnapshotArchive) History(ctx context.Context, itemID string, since time.Time) ([]models.TradePricePoint, error) {
	var points []models.TradePricePoint
	err := a.db.WithContext(ctx).
		Where("item_id = ? AND fetch_time >= ?", itemID, since).
		Order("fetch_time ASC, station_id ASC").
		Find(&points).Error
	return points, err
}

// Prune deletes snapshots fetched before cutoff along with their points.
func (a *SnapshotArchive) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fetch_time < ?", cutoff).Delete(&models.TradePricePoint{}).Error; err != nil {
			return err
		}
		res := tx.Where("fetch_time < ?", cutoff).Delete(&models.TradeSnapshotRecord{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}

// PricePoints converts the buy side of a snapshot into archive rows.
func PricePoints(snapshot *models.TradeSnapshot) []models.TradePricePoint {
	if snapshot == nil {
		return nil
	}
	var points []models.TradePricePoint
	for _, st := range snapshot.Stations {
		for _, item := range st.BuyItems {
			points = append(points, models.TradePricePoint{
				StationID: st.StationID,
				ItemID:    item.ItemID,
				Price:     item.Price,
				Quota:     item.Quota,
				IsRise:    item.IsRise,
				IsRare:    item.IsRare,
				FetchTime: snapshot.FetchTime,
			})
		}
	}
	return points
}
