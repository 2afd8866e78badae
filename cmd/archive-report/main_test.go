package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

func TestResolveItem(t *testing.T) {
	names := refdata.NewNames(map[string]string{"20": "ビール", "10": "ビール", "30": "ワイン"})

	assert.Equal(t, []string{"30"}, resolveItem(names, "30"))
	assert.Equal(t, []string{"10", "20"}, resolveItem(names, "ビール"))
	assert.Equal(t, []string{"99"}, resolveItem(names, "99"))
}

func TestPrintHistory(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	points := []models.TradePricePoint{
		{StationID: "s1", FetchTime: at, Price: 100, IsRise: 1, Quota: 1.2},
		{StationID: "s2", FetchTime: at.Add(time.Hour), Price: 80, Quota: 0.9},
	}
	var buf bytes.Buffer
	printHistory(&buf, points, refdata.NewNames(map[string]string{"s1": "港町"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "港町")
	assert.Contains(t, lines[0], "s2")
	assert.Contains(t, lines[1], "100▲ 120%")
	assert.Contains(t, lines[2], "80▼ 90%")
}
