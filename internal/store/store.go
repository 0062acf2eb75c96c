// Package store persists cleaned survey tables to sqlite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"econwatcher/internal/assert"
	"econwatcher/internal/chrono"
	"econwatcher/internal/pipeline"
	"econwatcher/internal/reader"
	"econwatcher/internal/survey"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func wrapOpen(err error) error {
	return fmt.Errorf("open store: %w", err)
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at `path`, ":memory:"
// opens a private in-memory database.
func Open(path string) (Store, error) {
	assert.NotEmptyStr(path, "db path")

	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return Store{}, wrapOpen(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, wrapOpen(err)
	}
	// sqlite allows a single writer, and every connection to ":memory:" is
	// its own database
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return Store{}, wrapOpen(err)
		}
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}

	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func nullString(c pipeline.Cell) sql.NullString {
	return sql.NullString{String: c.Value, Valid: c.Valid}
}

func cell(s sql.NullString) pipeline.Cell {
	if !s.Valid {
		return pipeline.Null
	}
	return pipeline.Value(s.String)
}

// Save writes the rows of the table, every month present in the table
// replaces what was stored for it before.
func (s Store) Save(ctx context.Context, table reader.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	variant := table.Variant.String()
	replaced := map[string]bool{}
	positions := map[string]int{}

	for _, row := range table.Rows {
		month := row.Date.Format(chrono.MonthLayout)
		if !replaced[month] {
			_, err = tx.ExecContext(
				ctx,
				"delete from SurveyRow where variant = ? and month = ?",
				variant, month,
			)
			if err != nil {
				return fmt.Errorf("replace %s %s: %w", variant, month, err)
			}
			replaced[month] = true
		}

		_, err = tx.ExecContext(
			ctx,
			`insert into SurveyRow(
				variant, month, position,
				industry, reason_type, region, is_tokyo, field, score, reason_sentence
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			variant, month, positions[month],
			nullString(row.Industry),
			nullString(row.ReasonType),
			nullString(row.Region),
			row.IsTokyo,
			nullString(row.Field),
			row.Score,
			row.ReasonSentence,
		)
		if err != nil {
			return fmt.Errorf("insert %s %s: %w", variant, month, err)
		}
		positions[month]++
	}

	return tx.Commit()
}

// Months returns the stored months of a variant in ascending order.
func (s Store) Months(ctx context.Context, variant survey.Variant) ([]time.Time, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select distinct month from SurveyRow where variant = ? order by month",
		variant.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []time.Time
	for rows.Next() {
		var month string
		err = rows.Scan(&month)
		if err != nil {
			return nil, err
		}
		parsed, err := chrono.ParseMonth(month)
		if err != nil {
			return nil, fmt.Errorf("stored month %q: %w", month, err)
		}
		months = append(months, parsed)
	}
	return months, rows.Err()
}

// Load reads the stored rows of a variant within [start, end] in the same
// order GetData returns them.
func (s Store) Load(ctx context.Context, variant survey.Variant, start, end time.Time) (reader.Table, error) {
	schema := survey.Lookup(variant)
	table := reader.Table{
		Variant: variant,
		Columns: schema.OutputColumns(),
	}

	rows, err := s.db.QueryContext(
		ctx,
		`select month, industry, reason_type, region, is_tokyo, field, score, reason_sentence
		from SurveyRow
		where variant = ? and month >= ? and month <= ?
		order by month, position`,
		variant.String(),
		start.Format(chrono.MonthLayout),
		end.Format(chrono.MonthLayout),
	)
	if err != nil {
		return table, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			month                             string
			industry, reasonType, region, fld sql.NullString
			row                               reader.Row
		)
		err = rows.Scan(
			&month,
			&industry,
			&reasonType,
			&region,
			&row.IsTokyo,
			&fld,
			&row.Score,
			&row.ReasonSentence,
		)
		if err != nil {
			return table, err
		}
		row.Date, err = chrono.ParseMonth(month)
		if err != nil {
			return table, fmt.Errorf("stored month %q: %w", month, err)
		}
		row.Industry = cell(industry)
		row.ReasonType = cell(reasonType)
		row.Region = cell(region)
		row.Field = cell(fld)
		table.Rows = append(table.Rows, row)
	}
	return table, rows.Err()
}
