package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trade-viewer/internal/models"
)

func offers() []models.BestOffer {
	return []models.BestOffer{
		{GoodsJp: "ビール", Price: 1000, StationID: "s1"},
		{GoodsJp: "ワイン", Price: 1500, StationID: "s2"},
		{GoodsJp: "アップル", Price: 500, StationID: "s1"},
	}
}

func names(items []models.BestOffer) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.GoodsJp)
	}
	return out
}

func TestFilterAndSortOrders(t *testing.T) {
	cases := []struct {
		order SortOrder
		want  []string
	}{
		{SortDefault, []string{"ビール", "ワイン", "アップル"}},
		{SortPriceHigh, []string{"ワイン", "ビール", "アップル"}},
		{SortPriceLow, []string{"アップル", "ビール", "ワイン"}},
		{SortName, []string{"アップル", "ビール", "ワイン"}},
		{SortOrder("whatever"), []string{"アップル", "ビール", "ワイン"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.order), func(t *testing.T) {
			assert.Equal(t, tc.want, names(FilterAndSort(offers(), "", tc.order, nil)))
		})
	}
}

func TestFilterAndSortSearchIsCaseInsensitive(t *testing.T) {
	items := append(offers(), models.BestOffer{GoodsJp: "Red Wine", Price: 10})

	assert.Equal(t, []string{"ビール"}, names(FilterAndSort(items, "ビール", SortDefault, nil)))
	assert.Equal(t, []string{"ビール"}, names(FilterAndSort(items, "ビ", SortDefault, nil)))
	assert.Equal(t, []string{"Red Wine"}, names(FilterAndSort(items, "red WINE", SortDefault, nil)))
	assert.Len(t, FilterAndSort(items, "", SortDefault, nil), 4)
}

func TestFavoritesFirstForEveryOrder(t *testing.T) {
	favs := NewKeys("s1-ビール")
	for _, order := range []SortOrder{SortDefault, SortPriceHigh, SortPriceLow, SortName} {
		got := FilterAndSort(offers(), "", order, favs)
		assert.Equal(t, "ビール", got[0].GoodsJp, "order %s", order)
	}

	got := FilterAndSort(offers(), "", SortPriceLow, favs)
	assert.Equal(t, []string{"ビール", "アップル", "ワイン"}, names(got))

	got = FilterAndSort(offers(), "", SortDefault, favs)
	assert.Equal(t, []string{"ビール", "ワイン", "アップル"}, names(got))
}

func TestFavoritesPrecedeNonFavoritesRegardlessOfPrice(t *testing.T) {
	items := []models.BestOffer{
		{GoodsJp: "a", Price: 1, StationID: "x"},
		{GoodsJp: "b", Price: 9000, StationID: "x"},
		{GoodsJp: "c", Price: 5, StationID: "x"},
		{GoodsJp: "d", Price: 7000, StationID: "x"},
	}
	favs := NewKeys("x-b", "x-d")
	got := FilterAndSort(items, "", SortPriceLow, favs)

	assert.Equal(t, []string{"d", "b", "a", "c"}, names(got))
}

func TestFilterAndSortDoesNotMutateInput(t *testing.T) {
	items := offers()
	FilterAndSort(items, "", SortPriceHigh, NewKeys("s1-アップル"))
	assert.Equal(t, []string{"ビール", "ワイン", "アップル"}, names(items))
}

func TestFilterRows(t *testing.T) {
	cols := []string{"s1"}
	rows := []models.PivotRow{
		models.NewPivotRow("ビール", cols),
		models.NewPivotRow("ワイン", cols),
		models.NewPivotRow("白ワイン", cols),
	}

	got := FilterRows(rows, "ワイン", NewKeys("白ワイン"))
	if assert.Len(t, got, 2) {
		assert.Equal(t, "白ワイン", got[0].GoodsJp)
		assert.Equal(t, "ワイン", got[1].GoodsJp)
	}

	all := FilterRows(rows, "", nil)
	assert.Len(t, all, 3)
	assert.Equal(t, "ビール", all[0].GoodsJp)
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortDefault, ParseSortOrder(""))
	assert.Equal(t, SortPriceHigh, ParseSortOrder(" Price-High "))
	assert.Equal(t, SortOrder("name"), ParseSortOrder("name"))
}

func priceRows() []models.PivotRow {
	cols := []string{"s1", "s2"}
	beer := models.NewPivotRow("ビール", cols)
	beer.Cells["s1"] = models.PivotCell{Price: 300}
	beer.Cells["s2"] = models.PivotCell{Price: 10}
	wine := models.NewPivotRow("ワイン", cols)
	wine.Cells["s1"] = models.PivotCell{Price: 100}
	apple := models.NewPivotRow("アップル", cols)
	apple.Cells["s2"] = models.PivotCell{Price: 50}
	tea := models.NewPivotRow("お茶", cols)
	tea.Cells["s1"] = models.PivotCell{Price: 200}
	return []models.PivotRow{beer, wine, apple, tea}
}

func rowNames(rows []models.PivotRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.GoodsJp)
	}
	return out
}

func TestParseColumnSort(t *testing.T) {
	cases := []struct {
		in   string
		want ColumnSort
		ok   bool
	}{
		{"", ColumnSort{}, false},
		{"s1", ColumnSort{StationID: "s1"}, true},
		{"s1:asc", ColumnSort{StationID: "s1"}, true},
		{" s1:DESC ", ColumnSort{StationID: "s1", Desc: true}, true},
		{"s1:sideways", ColumnSort{}, false},
		{":desc", ColumnSort{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseColumnSort(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestSortRowsByStationColumn(t *testing.T) {
	rows := priceRows()

	asc := SortRows(rows, ColumnSort{StationID: "s1"}, nil)
	assert.Equal(t, []string{"ワイン", "お茶", "ビール", "アップル"}, rowNames(asc))

	desc := SortRows(rows, ColumnSort{StationID: "s1", Desc: true}, nil)
	assert.Equal(t, []string{"ビール", "お茶", "ワイン", "アップル"}, rowNames(desc))

	// The input keeps its order.
	assert.Equal(t, []string{"ビール", "ワイン", "アップル", "お茶"}, rowNames(rows))
}

func TestSortRowsKeepsFavoritesFirst(t *testing.T) {
	got := SortRows(priceRows(), ColumnSort{StationID: "s2", Desc: true}, NewKeys("お茶", "アップル"))
	assert.Equal(t, []string{"アップル", "お茶", "ビール", "ワイン"}, rowNames(got))
}

func TestSortRowsZeroValueKeepsOrder(t *testing.T) {
	got := SortRows(priceRows(), ColumnSort{}, NewKeys("お茶"))
	assert.Equal(t, []string{"ビール", "ワイン", "アップル", "お茶"}, rowNames(got))
}
