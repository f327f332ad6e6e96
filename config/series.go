package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SeriesSetting describes one numbering series: prefix, zero padding and the lowest first number.
type SeriesSetting struct {
	DocType string
	Prefix  string
	Width   int
	Floor   int
}

var defaultSeries = []SeriesSetting{
	{DocType: "sale", Prefix: "G", Width: 6, Floor: 1},
	{DocType: "sale", Prefix: "GRM", Width: 3, Floor: 50},
	{DocType: "sale", Prefix: "", Width: 3, Floor: 1},
	{DocType: "sale", Prefix: "D", Width: 3, Floor: 1},
	{DocType: "receipt", Prefix: "RCP", Width: 4, Floor: 1},
	{DocType: "credit_note", Prefix: "CN", Width: 4, Floor: 1},
	{DocType: "debit_note", Prefix: "DN", Width: 4, Floor: 1},
	{DocType: "purchase", Prefix: "PUR", Width: 4, Floor: 1},
	{DocType: "supplier_payment", Prefix: "PAY", Width: 4, Floor: 1},
	{DocType: "outward", Prefix: "OW", Width: 5, Floor: 1},
	{DocType: "customer", Prefix: "CUST", Width: 3, Floor: 1},
	{DocType: "supplier", Prefix: "SUP", Width: 3, Floor: 1},
}

// SeriesDefaults returns the built-in series merged with SERIES_CONFIG.
//
// SERIES_CONFIG="sale:GRM:3:50,sale:K:4:1" (doc:prefix:width:floor, prefix may be empty).
func SeriesDefaults() ([]SeriesSetting, error) {
	return MergeSeriesConfig(defaultSeries, os.Getenv("SERIES_CONFIG"))
}

func MergeSeriesConfig(base []SeriesSetting, raw string) ([]SeriesSetting, error) {
	out := make([]SeriesSetting, len(base))
	copy(out, base)

	for _, item := range SplitCSV(raw) {
		parts := strings.Split(item, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("SERIES_CONFIG entry %q: want doc:prefix:width:floor", item)
		}
		width, err := strconv.Atoi(parts[2])
		if err != nil || width < 1 || width > 12 {
			return nil, fmt.Errorf("SERIES_CONFIG entry %q: invalid width", item)
		}
		floor, err := strconv.Atoi(parts[3])
		if err != nil || floor < 1 {
			return nil, fmt.Errorf("SERIES_CONFIG entry %q: invalid floor", item)
		}
		setting := SeriesSetting{
			DocType: strings.TrimSpace(parts[0]),
			Prefix:  strings.ToUpper(strings.TrimSpace(parts[1])),
			Width:   width,
			Floor:   floor,
		}
		replaced := false
		for i := range out {
			if out[i].DocType == setting.DocType && out[i].Prefix == setting.Prefix {
				out[i] = setting
				replaced = true
			}
		}
		if !replaced {
			out = append(out, setting)
		}
	}
	return out, nil
}
