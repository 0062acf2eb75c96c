package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"econwatcher/internal/chrono"
	"econwatcher/internal/pipeline"
	"econwatcher/internal/reader"
	"econwatcher/internal/survey"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	formatTable = "table"
	formatCsv   = "csv"
	formatJson  = "json"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func cellValue(c pipeline.Cell) any {
	if !c.Valid {
		return nil
	}
	return c.Value
}

// rowValues lays out a row in the order of `columns`, null cells are nil.
func rowValues(columns []string, row reader.Row) []any {
	values := make([]any, len(columns))
	for i, column := range columns {
		switch column {
		case survey.ColumnDate:
			values[i] = row.Date.Format(chrono.MonthLayout)
		case survey.ColumnIndustry:
			values[i] = cellValue(row.Industry)
		case survey.ColumnReasonType:
			values[i] = cellValue(row.ReasonType)
		case survey.ColumnRegion:
			values[i] = cellValue(row.Region)
		case survey.ColumnIsTokyo:
			values[i] = row.IsTokyo
		case survey.ColumnField:
			values[i] = cellValue(row.Field)
		case survey.ColumnScore:
			values[i] = row.Score
		case survey.ColumnReasonSentence:
			values[i] = row.ReasonSentence
		}
	}
	return values
}

func textRow(values []any) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		if v == nil {
			row[i] = ""
			continue
		}
		row[i] = v
	}
	return row
}

func render(w io.Writer, data reader.Table, format string) error {
	switch format {
	case formatTable, formatCsv:
		t := newTable(w)
		header := make(table.Row, len(data.Columns))
		for i, column := range data.Columns {
			header[i] = column
		}
		t.AppendHeader(header)
		for _, row := range data.Rows {
			t.AppendRow(textRow(rowValues(data.Columns, row)))
		}
		if format == formatCsv {
			t.RenderCSV()
			return nil
		}
		t.Render()
		return nil
	case formatJson:
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		for _, row := range data.Rows {
			values := rowValues(data.Columns, row)
			object := make(map[string]any, len(values))
			for i, column := range data.Columns {
				object[column] = values[i]
			}
			err := encoder.Encode(object)
			if err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q, expected one of %s, %s or %s", format, formatTable, formatCsv, formatJson)
}
