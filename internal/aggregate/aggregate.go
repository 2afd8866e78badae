// Package aggregate reduces per-station buy offers into the card view (best
// offer per commodity name) and the price table (station x commodity pivot).
// All functions are pure: inputs are never modified.
package aggregate

import (
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

// UnmappedPolicy decides what happens to a commodity id missing from the
// name table.
type UnmappedPolicy int

const (
	// Drop hides the item.
	Drop UnmappedPolicy = iota
	// FallbackToID shows the item under its raw id.
	FallbackToID
)

// resolve returns the display name for an item or false when the policy
// hides it.
func (p UnmappedPolicy) resolve(names refdata.Names, itemID string) (string, bool) {
	if name, ok := names.Lookup(itemID); ok {
		return name, true
	}
	if p == FallbackToID && itemID != "" {
		return itemID, true
	}
	return "", false
}

// Options for BestOffers.
type Options struct {
	// StationFilter restricts the scan to one station id when non-empty.
	StationFilter string
	OnUnmapped    UnmappedPolicy
}

// BestOffers returns one record per distinct display name holding the
// highest buy price across the scanned stations. On equal prices the first
// observation wins. Output follows first-encounter order of the names.
func BestOffers(stations []models.Station, names refdata.Names, opts Options) []models.BestOffer {
	index := make(map[string]int)
	out := make([]models.BestOffer, 0)

	for _, station := range stations {
		if opts.StationFilter != "" && station.StationID != opts.StationFilter {
			continue
		}
		for _, item := range station.BuyItems {
			name, ok := opts.OnUnmapped.resolve(names, item.ItemID)
			if !ok {
				continue
			}
			offer := toOffer(name, station.StationID, item)
			i, seen := index[name]
			if !seen {
				index[name] = len(out)
				out = append(out, offer)
				continue
			}
			if item.Price > out[i].Price {
				out[i] = offer
			}
		}
	}
	return out
}

// AllOffers lists every buy offer of every station, in station then document
// order, without collapsing by name.
func AllOffers(stations []models.Station, names refdata.Names, policy UnmappedPolicy) []models.BestOffer {
	var out []models.BestOffer
	for _, station := range stations {
		for _, item := range station.BuyItems {
			name, ok := policy.resolve(names, item.ItemID)
			if !ok {
				continue
			}
			out = append(out, toOffer(name, station.StationID, item))
		}
	}
	return out
}

func toOffer(name, stationID string, item models.TradeItem) models.BestOffer {
	return models.BestOffer{
		GoodsJp:   name,
		ItemID:    item.ItemID,
		StationID: stationID,
		Price:     item.Price,
		IsRise:    item.IsRise,
		Quota:     item.Quota,
		Trend:     item.Trend,
		IsRare:    item.IsRare,
		Direction: item.Direction(),
	}
}

// PivotTable builds one row per distinct display name with a cell for every
// station offering it. Several ids mapping to the same name at one station
// collapse to the maximum price, and the cell's quota/is_rise/trend come from
// that same observation. Stations and rows keep first-encounter order.
func PivotTable(stations []models.Station, names refdata.Names, policy UnmappedPolicy) *models.PivotTable {
	columns := make([]string, 0, len(stations))
	seenStation := make(map[string]bool, len(stations))
	for _, station := range stations {
		if seenStation[station.StationID] {
			continue
		}
		seenStation[station.StationID] = true
		columns = append(columns, station.StationID)
	}

	index := make(map[string]int)
	rows := make([]models.PivotRow, 0)

	for _, station := range stations {
		for _, item := range station.BuyItems {
			name, ok := policy.resolve(names, item.ItemID)
			if !ok {
				continue
			}
			i, seen := index[name]
			if !seen {
				i = len(rows)
				index[name] = i
				rows = append(rows, models.NewPivotRow(name, columns))
			}
			cells := rows[i].Cells
			if cur, ok := cells[station.StationID]; ok && cur.Price >= item.Price {
				continue
			}
			cells[station.StationID] = models.PivotCell{
				Price:  item.Price,
				Quota:  item.Quota,
				IsRise: item.IsRise,
				Trend:  item.Trend,
			}
		}
	}
	return &models.PivotTable{Stations: columns, Rows: rows}
}

// PriceRange returns the lowest and highest price of a row over the given
// columns, ignoring stations without an offer. ok is false when the row has
// no offer in those columns.
func PriceRange(row models.PivotRow, columns []string) (low, high float64, ok bool) {
	for _, sid := range columns {
		cell, has := row.Cells[sid]
		if !has {
			continue
		}
		if !ok {
			low, high, ok = cell.Price, cell.Price, true
			continue
		}
		if cell.Price < low {
			low = cell.Price
		}
		if cell.Price > high {
			high = cell.Price
		}
	}
	return low, high, ok
}
