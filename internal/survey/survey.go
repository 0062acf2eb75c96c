// Package survey describes the fixed positional layouts of the economy watchers
// survey csv files published by the Cabinet Office.
package survey

import (
	"errors"
	"fmt"
)

// TokyoMarker is the value the raw files put in the tokyo flag column for
// responses collected in Tokyo.
const TokyoMarker = "東京都"

var ErrUnknownKind = errors.New("unknown survey kind")

type Variant int

const (
	Current Variant = iota
	Future
	CurrentKoshinetsu
	FutureKoshinetsu
)

func (v Variant) String() string {
	switch v {
	case Current:
		return "current"
	case Future:
		return "future"
	case CurrentKoshinetsu:
		return "current_koshinetsu"
	case FutureKoshinetsu:
		return "future_koshinetsu"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseKind maps the user facing kind of a query ("current" or "future") to
// its standard variant.
func ParseKind(kind string) (Variant, error) {
	switch kind {
	case "current":
		return Current, nil
	case "future":
		return Future, nil
	}
	return 0, fmt.Errorf("%w: %q, it must be \"current\" or \"future\"", ErrUnknownKind, kind)
}

// NoColumn marks a column that does not exist in a layout.
const NoColumn = -1

// Schema is the positional layout of one variant's csv file.
type Schema struct {
	Variant  Variant
	FileName string

	Score          int
	TokyoFlag      int
	Field          int
	Industry       int
	ReasonType     int
	ReasonSentence int

	// ScoreMap maps a status symbol to its score from 0 to 4.
	ScoreMap map[string]int

	// Implemented is false for layouts whose scoring and region parsing are
	// not known yet, they must not be fed to the row pipeline.
	Implemented bool
}

func standardScoreMap() map[string]int {
	return map[string]int{
		"◎": 4,
		"○": 3,
		"□": 2,
		"▲": 1,
		"×": 0,
	}
}

// Lookup returns the layout of the given variant, it panics for a variant
// that is not declared.
func Lookup(v Variant) Schema {
	switch v {
	case Current:
		return Schema{
			Variant:        Current,
			FileName:       "watcher4.csv",
			Score:          2,
			TokyoFlag:      1,
			Field:          0,
			Industry:       3,
			ReasonType:     4,
			ReasonSentence: 5,
			ScoreMap:       standardScoreMap(),
			Implemented:    true,
		}
	case Future:
		return Schema{
			Variant:        Future,
			FileName:       "watcher5.csv",
			Score:          2,
			TokyoFlag:      1,
			Field:          0,
			Industry:       3,
			ReasonType:     NoColumn,
			ReasonSentence: 4,
			ScoreMap:       standardScoreMap(),
			Implemented:    true,
		}
	case CurrentKoshinetsu:
		return Schema{
			Variant:        CurrentKoshinetsu,
			FileName:       "watcher6.csv",
			Score:          0,
			TokyoFlag:      NoColumn,
			Field:          0,
			Industry:       3,
			ReasonType:     4,
			ReasonSentence: 5,
			ScoreMap:       map[string]int{},
		}
	case FutureKoshinetsu:
		return Schema{
			Variant:        FutureKoshinetsu,
			FileName:       "watcher7.csv",
			Score:          0,
			TokyoFlag:      NoColumn,
			Field:          0,
			Industry:       3,
			ReasonType:     4,
			ReasonSentence: 5,
			ScoreMap:       map[string]int{},
		}
	}
	panic(fmt.Sprintf("survey: unknown variant %d", int(v)))
}

func (s Schema) HasTokyoFlag() bool {
	return s.TokyoFlag != NoColumn
}

func (s Schema) HasReasonType() bool {
	return s.ReasonType != NoColumn
}

// ColumnName returns the semantic name of a positional column, or "" if the
// index is not part of the layout. When several semantic columns share an
// index the first one in score, is_tokyo, field, industry, reason_type,
// reason_sentence order wins.
func (s Schema) ColumnName(index int) string {
	if index == NoColumn {
		return ""
	}
	switch index {
	case s.Score:
		return ColumnScore
	case s.TokyoFlag:
		return ColumnIsTokyo
	case s.Field:
		return ColumnField
	case s.Industry:
		return ColumnIndustry
	case s.ReasonType:
		return ColumnReasonType
	case s.ReasonSentence:
		return ColumnReasonSentence
	}
	return ""
}

const (
	ColumnDate           = "date"
	ColumnIndustry       = "industry"
	ColumnReasonType     = "reason_type"
	ColumnRegion         = "region"
	ColumnIsTokyo        = "is_tokyo"
	ColumnField          = "field"
	ColumnScore          = "score"
	ColumnReasonSentence = "reason_sentence"
)

// OutputColumns returns the ordered columns of a cleaned, dated table of this
// variant. Positional columns are named through ColumnName, the derived ones
// (date, region) have no position in the raw file.
func (s Schema) OutputColumns() []string {
	columns := []string{ColumnDate, s.ColumnName(s.Industry)}
	if s.HasReasonType() {
		columns = append(columns, s.ColumnName(s.ReasonType))
	}
	return append(
		columns,
		ColumnRegion,
		ColumnIsTokyo,
		ColumnField,
		s.ColumnName(s.Score),
		s.ColumnName(s.ReasonSentence),
	)
}
