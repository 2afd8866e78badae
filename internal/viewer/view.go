// Package viewer combines the fetched trade data with the local view state
// into the screens of the client: the best-offer cards, the favorites
// dashboard and the price table.
package viewer

import (
	"time"

	"trade-viewer/internal/aggregate"
	"trade-viewer/internal/fetcher"
	"trade-viewer/internal/filter"
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
	"trade-viewer/internal/viewstate"
)

// StateSource is satisfied by *fetcher.Poller.
type StateSource interface {
	State() (snapshot *models.TradeSnapshot, names, stationNames refdata.Names, ready bool)
}

type View struct {
	src   StateSource
	store *viewstate.Store
}

func New(src StateSource, store *viewstate.Store) *View {
	return &View{src: src, store: store}
}

// Cards returns the best offer per commodity for the selected station (all
// stations when none is selected). An empty order uses the persisted one.
func (v *View) Cards(query string, order filter.SortOrder) ([]models.BestOffer, error) {
	snap, names, _, ready := v.src.State()
	if !ready {
		return nil, fetcher.ErrNotReady
	}
	if order == "" {
		order = filter.ParseSortOrder(v.store.SortOrder())
	}
	station, _ := v.store.SelectedStation()

	offers := aggregate.BestOffers(snap.Stations, names, aggregate.Options{
		StationFilter: station,
		OnUnmapped:    aggregate.Drop,
	})
	return filter.FilterAndSort(offers, query, order, v.store.Set(viewstate.SetFavoritesOverview)), nil
}

// Favorites lists every station's buy offer whose card key is a favorite,
// in station then document order. Unknown commodity ids are shown as the id.
func (v *View) Favorites(query string) ([]models.BestOffer, error) {
	snap, names, _, ready := v.src.State()
	if !ready {
		return nil, fetcher.ErrNotReady
	}
	favorites := v.store.Set(viewstate.SetFavoritesOverview)
	if favorites.Len() == 0 {
		return nil, nil
	}

	var out []models.BestOffer
	for _, offer := range aggregate.AllOffers(snap.Stations, names, aggregate.FallbackToID) {
		if favorites.Has(offer.FavoriteKey()) && filter.Matches(offer.GoodsJp, query) {
			out = append(out, offer)
		}
	}
	return out, nil
}

// PriceTable returns the pivot over the visible stations with favorite rows
// first. A non-zero sort orders rows by that station's price.
func (v *View) PriceTable(query string, sort filter.ColumnSort) (*models.PivotTable, error) {
	snap, names, _, ready := v.src.State()
	if !ready {
		return nil, fetcher.ErrNotReady
	}
	table := aggregate.PivotTable(snap.Stations, names, aggregate.FallbackToID)
	table = table.Project(v.store.Set(viewstate.SetVisibleStations).AsMap())
	favorites := v.store.Set(viewstate.SetFavoritesPrices)
	rows := filter.FilterRows(table.Rows, query, favorites)
	if !sort.IsZero() {
		rows = filter.SortRows(rows, sort, favorites)
	}
	return table.WithRows(rows), nil
}

// StationIDs lists the stations of the current snapshot.
func (v *View) StationIDs() []string {
	snap, _, _, _ := v.src.State()
	return snap.StationIDs()
}

// StationNames returns the station name table, empty until loaded.
func (v *View) StationNames() refdata.Names {
	_, _, stations, _ := v.src.State()
	return stations
}

// FetchTime is the zero time until a snapshot arrives.
func (v *View) FetchTime() time.Time {
	snap, _, _, _ := v.src.State()
	if snap == nil {
		return time.Time{}
	}
	return snap.FetchTime
}

func (v *View) ToggleCardFavorite(stationID, goodsJp string) (bool, error) {
	key := models.BestOffer{StationID: stationID, GoodsJp: goodsJp}.FavoriteKey()
	return v.store.Toggle(viewstate.SetFavoritesOverview, key)
}

func (v *View) TogglePriceFavorite(goodsJp string) (bool, error) {
	return v.store.Toggle(viewstate.SetFavoritesPrices, goodsJp)
}

func (v *View) ToggleVisibleStation(stationID string) (bool, error) {
	return v.store.Toggle(viewstate.SetVisibleStations, stationID)
}

// SelectStation narrows the cards to one station; "" clears the selection.
func (v *View) SelectStation(stationID string) error {
	return v.store.SetSelectedStation(stationID)
}

func (v *View) ShowPercent() bool {
	return v.store.ShowPercent()
}
