package filter

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"trade-viewer/internal/models"
)

type SortOrder string

const (
	SortDefault   SortOrder = "default"
	SortPriceHigh SortOrder = "price-high"
	SortPriceLow  SortOrder = "price-low"
	SortName      SortOrder = "name"
)

// ParseSortOrder maps user input to a SortOrder. Unknown values are kept
// as-is and fall back to name ordering.
func ParseSortOrder(s string) SortOrder {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortDefault
	}
	return SortOrder(s)
}

// KeySet is a read-only favorite set.
type KeySet interface {
	Has(key string) bool
}

// Keys is a simple KeySet.
type Keys map[string]struct{}

func NewKeys(keys ...string) Keys {
	k := make(Keys, len(keys))
	for _, key := range keys {
		k[key] = struct{}{}
	}
	return k
}

func (k Keys) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// Matches reports whether name contains query, ignoring case. An empty query
// matches everything.
func Matches(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// FilterAndSort keeps the offers whose name contains query and orders them.
// When favorites is non-nil, favorite offers (keyed by BestOffer.FavoriteKey)
// come first for every order; the requested order applies within each group.
// The input slice is never modified.
func FilterAndSort(items []models.BestOffer, query string, order SortOrder, favorites KeySet) []models.BestOffer {
	out := make([]models.BestOffer, 0, len(items))
	for _, item := range items {
		if Matches(item.GoodsJp, query) {
			out = append(out, item)
		}
	}

	isFav := func(o models.BestOffer) bool {
		return favorites != nil && favorites.Has(o.FavoriteKey())
	}

	if order == SortDefault || order == "" {
		if favorites != nil {
			slices.SortStableFunc(out, func(a, b models.BestOffer) int {
				return compareFavorite(isFav(a), isFav(b))
			})
		}
		return out
	}

	var byOrder func(a, b models.BestOffer) int
	switch order {
	case SortPriceHigh:
		byOrder = func(a, b models.BestOffer) int { return compareFloat(b.Price, a.Price) }
	case SortPriceLow:
		byOrder = func(a, b models.BestOffer) int { return compareFloat(a.Price, b.Price) }
	default:
		col := collate.New(language.Japanese)
		byOrder = func(a, b models.BestOffer) int { return col.CompareString(a.GoodsJp, b.GoodsJp) }
	}

	slices.SortStableFunc(out, func(a, b models.BestOffer) int {
		if c := compareFavorite(isFav(a), isFav(b)); c != 0 {
			return c
		}
		return byOrder(a, b)
	})
	return out
}

// FilterRows applies the name filter to price-table rows and moves favorite
// rows (keyed by bare commodity name) to the front, otherwise keeping order.
func FilterRows(rows []models.PivotRow, query string, favorites KeySet) []models.PivotRow {
	out := make([]models.PivotRow, 0, len(rows))
	for _, row := range rows {
		if Matches(row.GoodsJp, query) {
			out = append(out, row)
		}
	}
	if favorites == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b models.PivotRow) int {
		return compareFavorite(favorites.Has(a.GoodsJp), favorites.Has(b.GoodsJp))
	})
	return out
}

// ColumnSort orders price-table rows by one station column. The zero value
// leaves rows in table order.
type ColumnSort struct {
	StationID string
	Desc      bool
}

func (c ColumnSort) IsZero() bool {
	return c.StationID == ""
}

// ParseColumnSort reads "<stationId>", "<stationId>:asc" or
// "<stationId>:desc". Anything else is rejected.
func ParseColumnSort(s string) (ColumnSort, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ColumnSort{}, false
	}
	sid, dir, hasDir := strings.Cut(s, ":")
	if sid == "" {
		return ColumnSort{}, false
	}
	if !hasDir {
		return ColumnSort{StationID: sid}, true
	}
	switch strings.ToLower(dir) {
	case "asc":
		return ColumnSort{StationID: sid}, true
	case "desc":
		return ColumnSort{StationID: sid, Desc: true}, true
	}
	return ColumnSort{}, false
}

// SortRows orders rows by their price in the chosen station column, keeping
// favorite rows first. Rows without an offer at that station go last in
// either direction; ties keep their incoming order. The input slice is never
// modified.
func SortRows(rows []models.PivotRow, by ColumnSort, favorites KeySet) []models.PivotRow {
	out := append([]models.PivotRow{}, rows...)
	if by.IsZero() {
		return out
	}
	slices.SortStableFunc(out, func(a, b models.PivotRow) int {
		if favorites != nil {
			if c := compareFavorite(favorites.Has(a.GoodsJp), favorites.Has(b.GoodsJp)); c != 0 {
				return c
			}
		}
		aHas, bHas := a.Has(by.StationID), b.Has(by.StationID)
		switch {
		case aHas && !bHas:
			return -1
		case !aHas && bHas:
			return 1
		case !aHas && !bHas:
			return 0
		}
		if by.Desc {
			return compareFloat(b.Price(by.StationID), a.Price(by.StationID))
		}
		return compareFloat(a.Price(by.StationID), b.Price(by.StationID))
	})
	return out
}

func compareFavorite(a, b bool) int {
	switch {
	case a && !b:
		return -1
	case !a && b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
