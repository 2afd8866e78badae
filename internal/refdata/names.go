// Package refdata loads the static id -> display name tables for commodities
// and stations.
package refdata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

const (
	CommodityFile = "trade_db.json"
	StationFile   = "city_db.json"
)

var ErrEmptyTable = errors.New("reference table is empty")

// Table describes the JSON field holding the display name of a reference row.
type Table struct {
	File      string
	NameField string
}

var (
	Commodities = Table{File: CommodityFile, NameField: "goods_jp"}
	Stations    = Table{File: StationFile, NameField: "jp"}
)

// Names is an immutable id -> display name lookup.
type Names struct {
	m map[string]string
}

// NewNames copies src so later mutation of the caller's map has no effect.
func NewNames(src map[string]string) Names {
	m := make(map[string]string, len(src))
	for k, v := range src {
		m[k] = v
	}
	return Names{m: m}
}

func (n Names) Lookup(id string) (string, bool) {
	name, ok := n.m[id]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// NameOr returns the display name or the raw id when unmapped.
func (n Names) NameOr(id string) string {
	if name, ok := n.Lookup(id); ok {
		return name
	}
	return id
}

func (n Names) Len() int {
	return len(n.m)
}

// IDsFor returns every id mapped to the given display name.
func (n Names) IDsFor(name string) []string {
	var ids []string
	for id, v := range n.m {
		if v == name {
			ids = append(ids, id)
		}
	}
	return ids
}

// Parse reads a reference document: a JSON array of objects carrying "id"
// and the table's name field. Ids may be strings or numbers. Rows without an
// id or a name are skipped; later rows win on duplicate ids.
func Parse(data []byte, table Table) (Names, error) {
	if !gjson.ValidBytes(data) {
		return Names{}, fmt.Errorf("invalid %s document", table.File)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return Names{}, fmt.Errorf("%s: expected a JSON array", table.File)
	}
	m := make(map[string]string)
	root.ForEach(func(_, row gjson.Result) bool {
		id := row.Get("id").String()
		name := row.Get(table.NameField).String()
		if id != "" && name != "" {
			m[id] = name
		}
		return true
	})
	return Names{m: m}, nil
}

// LoadFile loads a table from dir.
func LoadFile(dir string, table Table) (Names, error) {
	data, err := os.ReadFile(filepath.Join(dir, table.File))
	if err != nil {
		return Names{}, fmt.Errorf("read %s: %w", table.File, err)
	}
	names, err := Parse(data, table)
	if err != nil {
		return Names{}, err
	}
	if names.Len() == 0 {
		return names, fmt.Errorf("%s: %w", table.File, ErrEmptyTable)
	}
	return names, nil
}
