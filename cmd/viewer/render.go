package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"trade-viewer/internal/aggregate"
	"trade-viewer/internal/filter"
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
	"trade-viewer/internal/viewer"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	riseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	fallStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	rareStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	favStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	highStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	lowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(28)
	favCardStyle = cardStyle.Copy().BorderForeground(lipgloss.Color("214"))
)

const cardsPerRow = 3

func header(title string, fetchTime time.Time) string {
	age := viewer.TimeAgo(fetchTime, time.Now())
	if age == "" {
		return titleStyle.Render(title)
	}
	return titleStyle.Render(title) + " " + dimStyle.Render("更新: "+age)
}

func arrow(t models.Trend) string {
	if t == models.Rising {
		return riseStyle.Render("▲")
	}
	return fallStyle.Render("▼")
}

func renderCards(title string, cards []models.BestOffer, stations refdata.Names, isFav func(models.BestOffer) bool, fetchTime time.Time) string {
	var b strings.Builder
	b.WriteString(header(title, fetchTime))
	b.WriteString("\n")
	if len(cards) == 0 {
		b.WriteString(dimStyle.Render("該当する商品がありません"))
		return b.String()
	}

	var row []string
	flush := func() {
		if len(row) > 0 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
			b.WriteString("\n")
			row = row[:0]
		}
	}
	for _, card := range cards {
		name := card.GoodsJp
		if card.IsRare == 1 {
			name = rareStyle.Render(name + " ★")
		}
		star := "☆"
		style := cardStyle
		if isFav(card) {
			star = favStyle.Render("★")
			style = favCardStyle
		}
		body := fmt.Sprintf("%s %s\n%s %s  %s\n%s",
			star, name,
			viewer.FormatPrice(card.Price), arrow(card.Direction), viewer.FormatPercent(card.Quota),
			dimStyle.Render(viewer.StationName(stations, card.StationID)))
		row = append(row, style.Render(body))
		if len(row) == cardsPerRow {
			flush()
		}
	}
	flush()
	return b.String()
}

// renderFavorites shows the favorite cards of every station, or a hint when
// nothing is marked yet.
func renderFavorites(favs []models.BestOffer, stations refdata.Names, fetchTime time.Time) string {
	if len(favs) == 0 {
		return header("お気に入り", fetchTime) + "\n" +
			dimStyle.Render("商品一覧ページでお気に入りを選択すると表示されます")
	}
	return renderCards("お気に入り", favs, stations, func(models.BestOffer) bool { return true }, fetchTime)
}

func renderTable(table *models.PivotTable, stations refdata.Names, favorites func(string) bool, showPercent bool, byColumn filter.ColumnSort, fetchTime time.Time) string {
	var b strings.Builder
	b.WriteString(header("価格表", fetchTime))
	b.WriteString("\n")

	const nameWidth = 20
	const cellWidth = 14
	nameCol := lipgloss.NewStyle().Width(nameWidth)
	cell := lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right)

	cols := []string{headerStyle.Inherit(nameCol).Render("商品")}
	for _, sid := range table.Stations {
		label := viewer.StationName(stations, sid)
		if sid == byColumn.StationID {
			if byColumn.Desc {
				label += " ↓"
			} else {
				label += " ↑"
			}
		}
		cols = append(cols, headerStyle.Inherit(cell).Render(label))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	for _, row := range table.Rows {
		label := row.GoodsJp
		if favorites(row.GoodsJp) {
			label = favStyle.Render("★ " + label)
		}
		cols := []string{nameCol.Render(label)}
		low, high, ok := aggregate.PriceRange(row, table.Stations)
		for _, sid := range table.Stations {
			if !row.Has(sid) {
				cols = append(cols, cell.Render(dimStyle.Render("-")))
				continue
			}
			c := row.Cell(sid)
			text := viewer.FormatPrice(c.Price) + " " + arrow(c.Direction())
			if showPercent {
				text += " " + viewer.FormatPercent(c.Quota)
			}
			switch {
			case ok && high > low && c.Price == high:
				text = highStyle.Render(text)
			case ok && high > low && c.Price == low:
				text = lowStyle.Render(text)
			}
			cols = append(cols, cell.Render(text))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
		b.WriteString("\n")
	}
	return b.String()
}
