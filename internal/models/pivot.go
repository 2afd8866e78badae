package models

import (
	"bytes"
	"encoding/json"
)

// PivotCell holds one station's offer for one commodity. The sidecar values
// belong to the maximum-price observation.
type PivotCell struct {
	Price  float64 `json:"price"`
	Quota  float64 `json:"quota"`
	IsRise int     `json:"is_rise"`
	Trend  int     `json:"trend"`
}

func (c PivotCell) Direction() Trend {
	return TrendFromFlag(c.IsRise)
}

// PivotRow is one commodity row of the price table.
type PivotRow struct {
	GoodsJp string
	Cells   map[string]PivotCell

	columns []string
}

func NewPivotRow(goodsJp string, columns []string) PivotRow {
	return PivotRow{GoodsJp: goodsJp, Cells: make(map[string]PivotCell), columns: columns}
}

// Columns returns the station ids the row is rendered against.
func (r PivotRow) Columns() []string {
	return r.columns
}

func (r PivotRow) Has(stationID string) bool {
	_, ok := r.Cells[stationID]
	return ok
}

// Cell returns the zero cell when the station has no offer.
func (r PivotRow) Cell(stationID string) PivotCell {
	return r.Cells[stationID]
}

func (r PivotRow) Price(stationID string) float64 {
	return r.Cells[stationID].Price
}

// MarshalJSON renders the flat row shape
// {goodsJp, <sid>: price, <sid>_quota, <sid>_is_rise, <sid>_trend}.
// Stations without an offer are rendered as zeros.
func (r PivotRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeField(&buf, "goodsJp", r.GoodsJp, true); err != nil {
		return nil, err
	}
	for _, sid := range r.columns {
		c := r.Cells[sid]
		if err := writeField(&buf, sid, c.Price, false); err != nil {
			return nil, err
		}
		if err := writeField(&buf, sid+"_quota", c.Quota, false); err != nil {
			return nil, err
		}
		if err := writeField(&buf, sid+"_is_rise", c.IsRise, false); err != nil {
			return nil, err
		}
		if err := writeField(&buf, sid+"_trend", c.Trend, false); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value interface{}, first bool) error {
	if !first {
		buf.WriteByte(',')
	}
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// PivotTable is the station x commodity matrix.
type PivotTable struct {
	Stations []string   `json:"stations"`
	Rows     []PivotRow `json:"rows"`
}

// Project keeps only the visible station columns, in table order. An empty
// visible set keeps every column.
func (t *PivotTable) Project(visible map[string]bool) *PivotTable {
	if t == nil {
		return &PivotTable{}
	}
	if len(visible) == 0 {
		return t
	}
	columns := make([]string, 0, len(t.Stations))
	for _, sid := range t.Stations {
		if visible[sid] {
			columns = append(columns, sid)
		}
	}
	rows := make([]PivotRow, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = PivotRow{GoodsJp: row.GoodsJp, Cells: row.Cells, columns: columns}
	}
	return &PivotTable{Stations: columns, Rows: rows}
}

// WithRows returns a table sharing the columns with a different row set.
func (t *PivotTable) WithRows(rows []PivotRow) *PivotTable {
	return &PivotTable{Stations: t.Stations, Rows: rows}
}
