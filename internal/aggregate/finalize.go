package aggregate

import (
	"sort"

	"github.com/sells-group/cadastre-cli/internal/model"
)

// Finalize builds the output table: records sorted descending by area
// (records without an area sort last), columns in contract order, columns
// that are empty across all records dropped. Finalize does not mutate its
// input and is idempotent: finalizing an already-sorted record set yields
// the same table.
func Finalize(records []model.Record) model.Table {
	sorted := make([]model.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Area, sorted[j].Area
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	full := make([][]string, len(sorted))
	for i, r := range sorted {
		full[i] = r.Cells()
	}

	// Keep a column only if some row has a value in it.
	var keep []int
	for col := range model.Columns {
		for _, row := range full {
			if row[col] != "" {
				keep = append(keep, col)
				break
			}
		}
	}

	table := model.Table{Columns: make([]string, len(keep))}
	for i, col := range keep {
		table.Columns[i] = model.Columns[col]
	}
	for _, row := range full {
		cells := make([]string, len(keep))
		for i, col := range keep {
			cells[i] = row[col]
		}
		table.Rows = append(table.Rows, cells)
	}

	return table
}
