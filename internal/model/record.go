package model

import "strconv"

// Object status labels as rendered in the output table. The registry encodes
// status as a boolean-like code: "1" means the record is current.
const (
	StatusActive    = "Актуально"
	StatusCancelled = "Погашено"
)

// Output column headers. The order and the literal header text are part of
// the output contract: downstream spreadsheets are keyed on them.
const (
	ColCadNumber    = "Кадастровый номер"
	ColStatus       = "Статус объекта"
	ColAddress      = "Адрес"
	ColObjectType   = "Тип объекта"
	ColPurpose      = "Назначение"
	ColFloors       = "Количество этажей"
	ColUnderground  = "Количество подземных этажей"
	ColLevelFloor   = "Этаж"
	ColLandCategory = "Категория земель"
	ColPermittedUse = "Вид разрешенного использования"
	ColYearBuilt    = "Год завершения строительства"
	ColCadCost      = "Кадастровая стоимость"
	ColArea         = "Площадь, кв.м"
	ColRights       = "Вид, номер и дата государственной регистрации права"
	ColEncumbrances = "Ограничение прав и обременение объекта недвижимости"
)

// Columns lists all output columns in contract order.
var Columns = []string{
	ColCadNumber,
	ColStatus,
	ColAddress,
	ColObjectType,
	ColPurpose,
	ColFloors,
	ColUnderground,
	ColLevelFloor,
	ColLandCategory,
	ColPermittedUse,
	ColYearBuilt,
	ColCadCost,
	ColArea,
	ColRights,
	ColEncumbrances,
}

// Record is one normalized property record. String fields hold "" when the
// source element did not carry the value; Area is nil when absent or
// unparseable. Records are immutable once built.
type Record struct {
	CadNumber    string
	Status       string
	Address      string
	ObjectType   string
	Purpose      string
	Floors       string
	Underground  string
	LevelFloor   string
	LandCategory string
	PermittedUse string
	YearBuilt    string
	CadCost      string
	Area         *float64
	Rights       string
	Encumbrances string
}

// Cells renders the record as table cells in Columns order.
func (r Record) Cells() []string {
	area := ""
	if r.Area != nil {
		area = strconv.FormatFloat(*r.Area, 'f', -1, 64)
	}
	return []string{
		r.CadNumber,
		r.Status,
		r.Address,
		r.ObjectType,
		r.Purpose,
		r.Floors,
		r.Underground,
		r.LevelFloor,
		r.LandCategory,
		r.PermittedUse,
		r.YearBuilt,
		r.CadCost,
		area,
		r.Rights,
		r.Encumbrances,
	}
}

// Table is the finalized output: a header and rows with all-empty columns
// already dropped.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}
