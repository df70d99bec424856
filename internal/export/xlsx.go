// Package export renders finalized result tables: an XLSX workbook for
// batch output and a transposed console table for interactive runs.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cadastre-cli/internal/model"
)

// columnWidths overrides the default width for wide columns, keyed by
// header.
var columnWidths = map[string]float64{
	model.ColCadNumber:    19,
	model.ColAddress:      45,
	model.ColLandCategory: 22,
	model.ColRights:       45,
	model.ColEncumbrances: 45,
	model.ColObjectType:   25,
	model.ColPermittedUse: 35,
}

// wrapColumns get top-left alignment with text wrap, keyed by header.
var wrapColumns = map[string]bool{
	model.ColAddress:      true,
	model.ColLandCategory: true,
	model.ColRights:       true,
	model.ColEncumbrances: true,
	model.ColObjectType:   true,
	model.ColPermittedUse: true,
}

// WriteXLSX writes the table to an XLSX workbook at path.
func WriteXLSX(table model.Table, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	wrapStyle := xlsx.NewStyle()
	wrapStyle.Alignment = xlsx.Alignment{
		Horizontal: "left",
		Vertical:   "top",
		WrapText:   true,
	}
	wrapStyle.ApplyAlignment = true

	header := sheet.AddRow()
	for _, col := range table.Columns {
		header.AddCell().Value = col
	}

	for _, row := range table.Rows {
		r := sheet.AddRow()
		for i, cell := range row {
			c := r.AddCell()
			c.Value = cell
			if i < len(table.Columns) && wrapColumns[table.Columns[i]] {
				c.SetStyle(wrapStyle)
			}
		}
	}

	for i, col := range table.Columns {
		if width, ok := columnWidths[col]; ok {
			sheet.SetColWidth(i, i, width)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
