package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

func buy(stationID, itemID string, price, quota float64, isRise int) models.TradeItem {
	return models.TradeItem{
		Type:      models.SideBuy,
		StationID: stationID,
		ItemID:    itemID,
		Commodity: models.Commodity{Price: price, Quota: quota, IsRise: isRise, Trend: isRise},
	}
}

func fixture() ([]models.Station, refdata.Names) {
	names := refdata.NewNames(map[string]string{
		"beer-a": "ビール",
		"beer-b": "ビール",
		"wine":   "ワイン",
		"apple":  "アップル",
		"tea":    "紅茶",
		"salt":   "塩",
	})
	stations := []models.Station{
		{StationID: "s1", BuyItems: []models.TradeItem{
			buy("s1", "beer-a", 100, 1.1, 1),
			buy("s1", "wine", 300, 0.9, 0),
			buy("s1", "unknown", 999, 1.0, 1),
		}},
		{StationID: "s2", BuyItems: []models.TradeItem{
			buy("s2", "beer-b", 200, 1.3, 0),
			buy("s2", "apple", 50, 1.0, 1),
			buy("s2", "tea", 70, 1.0, 1),
		}},
		{StationID: "s3", BuyItems: []models.TradeItem{
			buy("s3", "wine", 300, 1.5, 1),
			buy("s3", "salt", 10, 0.8, 0),
		}},
	}
	return stations, names
}

func offerByName(offers []models.BestOffer, name string) (models.BestOffer, bool) {
	for _, o := range offers {
		if o.GoodsJp == name {
			return o, true
		}
	}
	return models.BestOffer{}, false
}

func TestBestOffersPicksMaximumPrice(t *testing.T) {
	stations, names := fixture()
	offers := BestOffers(stations, names, Options{})

	beer, ok := offerByName(offers, "ビール")
	require.True(t, ok)
	assert.Equal(t, 200.0, beer.Price)
	assert.Equal(t, "s2", beer.StationID)
	assert.Equal(t, "beer-b", beer.ItemID)
	assert.Equal(t, 1.3, beer.Quota)
}

func TestBestOffersTieKeepsFirstSeen(t *testing.T) {
	stations, names := fixture()
	offers := BestOffers(stations, names, Options{})

	wine, ok := offerByName(offers, "ワイン")
	require.True(t, ok)
	assert.Equal(t, "s1", wine.StationID)
	assert.Equal(t, 0.9, wine.Quota)
	assert.Equal(t, models.Falling, wine.Direction)
}

func TestBestOffersOnePerNameInFirstEncounterOrder(t *testing.T) {
	stations, names := fixture()
	offers := BestOffers(stations, names, Options{})

	got := make([]string, 0, len(offers))
	for _, o := range offers {
		got = append(got, o.GoodsJp)
	}
	assert.Equal(t, []string{"ビール", "ワイン", "アップル", "紅茶", "塩"}, got)
}

func TestBestOffersStationFilter(t *testing.T) {
	stations, names := fixture()
	offers := BestOffers(stations, names, Options{StationFilter: "s1"})

	require.Len(t, offers, 2)
	for _, o := range offers {
		assert.Equal(t, "s1", o.StationID)
	}
	beer, _ := offerByName(offers, "ビール")
	assert.Equal(t, 100.0, beer.Price)
}

func TestBestOffersSimpleDuplicate(t *testing.T) {
	names := refdata.NewNames(map[string]string{"x1": "X", "x2": "X"})
	stations := []models.Station{{StationID: "s", BuyItems: []models.TradeItem{
		buy("s", "x1", 100, 1, 0),
		buy("s", "x2", 200, 1, 0),
	}}}

	offers := BestOffers(stations, names, Options{})
	require.Len(t, offers, 1)
	assert.Equal(t, 200.0, offers[0].Price)
}

func TestUnmappedCommodityAcrossViews(t *testing.T) {
	stations, names := fixture()

	offers := BestOffers(stations, names, Options{})
	_, found := offerByName(offers, "unknown")
	assert.False(t, found, "card view drops unmapped ids")

	table := PivotTable(stations, names, FallbackToID)
	var row *models.PivotRow
	for i := range table.Rows {
		if table.Rows[i].GoodsJp == "unknown" {
			row = &table.Rows[i]
		}
	}
	require.NotNil(t, row, "price table falls back to the raw id")
	assert.Equal(t, 999.0, row.Price("s1"))

	dropped := PivotTable(stations, names, Drop)
	for _, r := range dropped.Rows {
		assert.NotEqual(t, "unknown", r.GoodsJp)
	}

	fallback := BestOffers(stations, names, Options{OnUnmapped: FallbackToID})
	_, found = offerByName(fallback, "unknown")
	assert.True(t, found)
}

func TestPivotTableCompleteness(t *testing.T) {
	stations, names := fixture()
	table := PivotTable(stations, names, Drop)

	assert.Equal(t, []string{"s1", "s2", "s3"}, table.Stations)
	require.Len(t, table.Rows, 5)
	for _, row := range table.Rows {
		populated := 0
		for _, sid := range table.Stations {
			if row.Has(sid) {
				populated++
			} else {
				assert.Zero(t, row.Price(sid))
			}
		}
		assert.True(t, populated >= 1 && populated <= 3)
	}
}

func TestPivotSidecarFollowsMaxPrice(t *testing.T) {
	names := refdata.NewNames(map[string]string{"a": "X", "b": "X", "c": "X"})
	stations := []models.Station{{StationID: "s", BuyItems: []models.TradeItem{
		buy("s", "a", 100, 2.0, 1),
		buy("s", "b", 300, 0.5, 0),
		buy("s", "c", 200, 3.0, 1),
	}}}

	table := PivotTable(stations, names, Drop)
	require.Len(t, table.Rows, 1)
	cell := table.Rows[0].Cell("s")
	assert.Equal(t, 300.0, cell.Price)
	assert.Equal(t, 0.5, cell.Quota, "quota comes from the max-price observation")
	assert.Equal(t, 0, cell.IsRise)
}

func TestPivotTableEmptyInput(t *testing.T) {
	table := PivotTable(nil, refdata.Names{}, FallbackToID)
	assert.Empty(t, table.Stations)
	assert.Empty(t, table.Rows)

	assert.Empty(t, BestOffers([]models.Station{{StationID: "empty"}}, refdata.Names{}, Options{}))
}

func TestAggregationDoesNotMutateInput(t *testing.T) {
	stations, names := fixture()
	before := stations[0].BuyItems[0]

	BestOffers(stations, names, Options{})
	PivotTable(stations, names, FallbackToID)

	assert.Equal(t, before, stations[0].BuyItems[0])
	assert.Len(t, stations[0].BuyItems, 3)
}

func TestPriceRange(t *testing.T) {
	row := models.NewPivotRow("X", []string{"s1", "s2", "s3"})
	row.Cells["s1"] = models.PivotCell{Price: 30}
	row.Cells["s3"] = models.PivotCell{Price: 10}

	low, high, ok := PriceRange(row, row.Columns())
	require.True(t, ok)
	assert.Equal(t, 10.0, low)
	assert.Equal(t, 30.0, high)

	_, _, ok = PriceRange(row, []string{"s2"})
	assert.False(t, ok)
}

func TestAllOffersKeepsEveryStationOffer(t *testing.T) {
	stations, names := fixture()

	all := AllOffers(stations, names, FallbackToID)
	require.Len(t, all, 8)
	assert.Equal(t, "ビール", all[0].GoodsJp)
	assert.Equal(t, "s1", all[0].StationID)
	assert.Equal(t, "unknown", all[2].GoodsJp)
	assert.Equal(t, "s3-ワイン", all[6].FavoriteKey())

	dropped := AllOffers(stations, names, Drop)
	assert.Len(t, dropped, 7)
}
