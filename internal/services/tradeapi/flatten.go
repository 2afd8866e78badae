package tradeapi

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"trade-viewer/internal/models"
)

// Exclusions lists station and commodity ids hidden from clients.
type Exclusions struct {
	Stations    []string
	Commodities []string
}

func (e Exclusions) sets() (map[string]bool, map[string]bool) {
	stations := make(map[string]bool, len(e.Stations))
	for _, id := range e.Stations {
		stations[id] = true
	}
	commodities := make(map[string]bool, len(e.Commodities))
	for _, id := range e.Commodities {
		commodities[id] = true
	}
	return stations, commodities
}

// Flatten turns the upstream {stations: {id: {sell_price: {...}, buy_price:
// {...}}}} document into the station list served to clients. Stations and
// items keep document order. Excluded stations are removed entirely and
// excluded commodities are stripped from both sides of every station.
func Flatten(body []byte, ex Exclusions) ([]models.Station, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.GetBytes(body, "stations")
	if !root.Exists() {
		return nil, fmt.Errorf("%w: missing stations", ErrMalformed)
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: stations is not an object", ErrMalformed)
	}

	skipStation, skipCommodity := ex.sets()
	stations := make([]models.Station, 0)

	root.ForEach(func(key, value gjson.Result) bool {
		stationID := key.String()
		if skipStation[stationID] {
			return true
		}
		station := models.Station{
			StationID: stationID,
			SellItems: flattenSide(value.Get("sell_price"), models.SideSell, stationID, skipCommodity),
			BuyItems:  flattenSide(value.Get("buy_price"), models.SideBuy, stationID, skipCommodity),
		}
		if dev := value.Get("dev_degree"); dev.Type == gjson.Number {
			v := dev.Float()
			station.DevDegree = &v
		}
		if rec := value.Get("recyclable"); rec.Exists() && rec.Type != gjson.Null {
			station.Recyclable = json.RawMessage(rec.Raw)
		}
		stations = append(stations, station)
		return true
	})
	return stations, nil
}

func flattenSide(side gjson.Result, kind, stationID string, skip map[string]bool) []models.TradeItem {
	items := make([]models.TradeItem, 0)
	if !side.IsObject() {
		return items
	}
	side.ForEach(func(key, value gjson.Result) bool {
		itemID := key.String()
		if skip[itemID] {
			return true
		}
		items = append(items, models.TradeItem{
			Type:      kind,
			StationID: stationID,
			ItemID:    itemID,
			Commodity: parseCommodity(value),
		})
		return true
	})
	return items
}

func parseCommodity(v gjson.Result) models.Commodity {
	return models.Commodity{
		Price:    v.Get("price").Float(),
		IsRise:   int(v.Get("is_rise").Int()),
		Quota:    v.Get("quota").Float(),
		IsRare:   int(v.Get("is_rare").Int()),
		Ti:       v.Get("ti").Int(),
		Stock:    int(v.Get("stock").Int()),
		NotNum:   int(v.Get("not_num").Int()),
		Trend:    int(v.Get("trend").Int()),
		TradeNum: int(v.Get("trade_num").Int()),
	}
}
