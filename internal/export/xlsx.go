// Package export renders the price table as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

const (
	PriceSheet  = "Prices"
	QuotaSheet  = "Quota"
	NameHeader  = "商品"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WritePivot writes one row per commodity and one column per station. The
// Prices sheet holds buy prices; the Quota sheet holds the matching quota
// as a whole percentage. Stations without an offer are written as 0.
func WritePivot(w io.Writer, table *models.PivotTable, stationNames refdata.Names) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PriceSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(QuotaSheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, len(table.Stations)+1)
	header = append(header, NameHeader)
	for _, sid := range table.Stations {
		header = append(header, stationNames.NameOr(sid))
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for _, sheet := range []string{PriceSheet, QuotaSheet} {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
			return err
		}
	}

	for i, row := range table.Rows {
		prices := make([]interface{}, 0, len(table.Stations)+1)
		quotas := make([]interface{}, 0, len(table.Stations)+1)
		prices = append(prices, row.GoodsJp)
		quotas = append(quotas, row.GoodsJp)
		for _, sid := range table.Stations {
			cell := row.Cell(sid)
			prices = append(prices, cell.Price)
			quotas = append(quotas, percent(cell.Quota))
		}
		axis := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(PriceSheet, axis, &prices); err != nil {
			return err
		}
		if err := f.SetSheetRow(QuotaSheet, axis, &quotas); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func percent(quota float64) int {
	return int(math.Round(quota * 100))
}
