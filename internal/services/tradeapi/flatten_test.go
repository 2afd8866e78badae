package tradeapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-viewer/internal/models"
)

const threeStations = `{
  "stations": {
    "station1": {"dev_degree": 12.5, "buy_price": {"item1": {"price": 100, "is_rise": 1, "quota": 1.1}}},
    "station2": {"recyclable": {"item9": 1}, "buy_price": {"item2": {"price": 200}}},
    "station3": {"recyclable": null, "buy_price": {"item3": {"price": 300, "trend": 1}}, "sell_price": {"item4": {"price": 50}}}
  }
}`

func stationIDs(stations []models.Station) []string {
	ids := make([]string, 0, len(stations))
	for _, s := range stations {
		ids = append(ids, s.StationID)
	}
	return ids
}

func itemIDs(items []models.TradeItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ItemID)
	}
	return ids
}

func TestFlattenKeepsDocumentOrder(t *testing.T) {
	stations, err := Flatten([]byte(threeStations), Exclusions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"station1", "station2", "station3"}, stationIDs(stations))

	st3 := stations[2]
	require.Len(t, st3.BuyItems, 1)
	assert.Equal(t, models.TradeItem{
		Type:      models.SideBuy,
		StationID: "station3",
		ItemID:    "item3",
		Commodity: models.Commodity{Price: 300, Trend: 1},
	}, st3.BuyItems[0])
	require.Len(t, st3.SellItems, 1)
	assert.Equal(t, models.SideSell, st3.SellItems[0].Type)
}

func TestFlattenExcludesStations(t *testing.T) {
	stations, err := Flatten([]byte(threeStations), Exclusions{Stations: []string{"station1", "station2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"station3"}, stationIDs(stations))
}

func TestFlattenExcludesCommoditiesOnBothSides(t *testing.T) {
	body := `{"stations": {"s": {
		"buy_price": {"item1": {"price": 1}, "item2": {"price": 2}, "item3": {"price": 3}},
		"sell_price": {"item1": {"price": 1}, "item3": {"price": 3}}
	}}}`
	stations, err := Flatten([]byte(body), Exclusions{Commodities: []string{"item1", "item2"}})
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, []string{"item3"}, itemIDs(stations[0].BuyItems))
	assert.Equal(t, []string{"item3"}, itemIDs(stations[0].SellItems))
}

func TestFlattenOptionalStationFields(t *testing.T) {
	stations, err := Flatten([]byte(threeStations), Exclusions{})
	require.NoError(t, err)

	require.NotNil(t, stations[0].DevDegree)
	assert.Equal(t, 12.5, *stations[0].DevDegree)
	assert.Nil(t, stations[0].Recyclable)

	assert.Nil(t, stations[1].DevDegree)
	assert.JSONEq(t, `{"item9": 1}`, string(stations[1].Recyclable))

	assert.Nil(t, stations[2].Recyclable)
}

func TestFlattenEmptyStationHasEmptySlices(t *testing.T) {
	stations, err := Flatten([]byte(`{"stations": {"lonely": {}}}`), Exclusions{})
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.NotNil(t, stations[0].BuyItems)
	assert.NotNil(t, stations[0].SellItems)
	assert.Empty(t, stations[0].BuyItems)
}

func TestFlattenMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json":     `{"stations": `,
		"missing stations": `{"foo": {}}`,
		"stations array":   `{"stations": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Flatten([]byte(body), Exclusions{})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
