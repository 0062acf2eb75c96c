// Package pipeline turns a raw economy watchers csv file into scored records.
//
// The stages have to run in the order Clean runs them: the field is filled
// forward in file order, and the region is read out of the field before the
// field is cleaned.
package pipeline

import (
	"fmt"

	"econwatcher/internal/survey"
)

// Record is one cleaned survey response.
type Record struct {
	Industry       Cell
	ReasonType     Cell
	Region         Cell
	IsTokyo        bool
	Field          Cell
	Score          int
	ReasonSentence string
}

// Stats counts the rows each filtering stage dropped.
type Stats struct {
	In            int
	MissingScore  int
	UnmappedScore int
	EmptySentence int
	Out           int
}

// Clean runs every stage over the table and returns the surviving records.
func Clean(raw RawTable, s survey.Schema) []Record {
	records, _ := CleanWithStats(raw, s)
	return records
}

func CleanWithStats(raw RawTable, s survey.Schema) ([]Record, Stats) {
	if !s.Implemented {
		panic(fmt.Sprintf("pipeline: layout of %s is not implemented", s.Variant))
	}

	stats := Stats{In: raw.Len()}

	frame := NewFrame(raw)
	frame = FilterMissingScore(frame, s)
	stats.MissingScore = stats.In - len(frame)

	frame = ScrubNewlines(frame)
	frame = FlagTokyo(frame, s)
	frame = FillField(frame, s)
	frame = ExtractRegion(frame)
	frame = CleanField(frame)
	frame = Symbolize(frame, s)

	scored := FilterUnscored(frame)
	stats.UnmappedScore = len(frame) - len(scored)
	frame = FilterEmptySentence(scored, s)
	stats.EmptySentence = len(scored) - len(frame)

	frame = CleanSentence(frame, s)
	stats.Out = len(frame)

	return Project(frame, s), stats
}

// Project converts the rows of a fully cleaned frame to records.
func Project(f Frame, s survey.Schema) []Record {
	records := make([]Record, len(f))
	for i, r := range f {
		reasonType := Null
		if s.HasReasonType() {
			reasonType = r.Cell(s.ReasonType)
		}
		records[i] = Record{
			Industry:       r.Cell(s.Industry),
			ReasonType:     reasonType,
			Region:         r.Region,
			IsTokyo:        r.IsTokyo,
			Field:          r.Field,
			Score:          r.Score,
			ReasonSentence: r.ReasonSentence.String(),
		}
	}
	return records
}
