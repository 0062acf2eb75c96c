package pipeline

// Cell is one value of a raw csv file, Valid is false for blank cells.
type Cell struct {
	Value string
	Valid bool
}

// Value creates a non-null cell.
func Value(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// Null is the blank cell.
var Null = Cell{}

// String returns the value of the cell or "" if it is null.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// RawTable is a headerless csv file of one month and one survey variant, in
// the row order of the file.
type RawTable struct {
	Rows [][]Cell
}

// NewRawTable converts string records to a table, empty strings become null
// cells.
func NewRawTable(records [][]string) RawTable {
	rows := make([][]Cell, len(records))
	for i, record := range records {
		row := make([]Cell, len(record))
		for j, v := range record {
			if v == "" {
				row[j] = Null
				continue
			}
			row[j] = Value(v)
		}
		rows[i] = row
	}
	return RawTable{Rows: rows}
}

func (t RawTable) Len() int {
	return len(t.Rows)
}
