package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-viewer/internal/filter"
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

func TestParseColumnSortFlag(t *testing.T) {
	by, err := parseColumnSort("")
	require.NoError(t, err)
	assert.True(t, by.IsZero())

	by, err = parseColumnSort("s1:desc")
	require.NoError(t, err)
	assert.Equal(t, filter.ColumnSort{StationID: "s1", Desc: true}, by)

	_, err = parseColumnSort("s1:up")
	assert.Error(t, err)
}

func TestRenderFavorites(t *testing.T) {
	empty := renderFavorites(nil, refdata.Names{}, time.Time{})
	assert.Contains(t, empty, "お気に入りを選択すると表示されます")

	out := renderFavorites([]models.BestOffer{{GoodsJp: "ビール", StationID: "s1", Price: 120}},
		refdata.NewNames(map[string]string{"s1": "港町"}), time.Time{})
	assert.Contains(t, out, "ビール")
	assert.Contains(t, out, "港町")
	assert.Contains(t, out, "★")
}

func TestRenderTableMarksSortedColumn(t *testing.T) {
	cols := []string{"s1", "s2"}
	row := models.NewPivotRow("ビール", cols)
	row.Cells["s1"] = models.PivotCell{Price: 100}
	table := &models.PivotTable{Stations: cols, Rows: []models.PivotRow{row}}

	out := renderTable(table, refdata.Names{}, func(string) bool { return false }, false,
		filter.ColumnSort{StationID: "s2", Desc: true}, time.Time{})
	assert.Contains(t, out, "s2 ↓")
	assert.NotContains(t, out, "s1 ↑")
}
