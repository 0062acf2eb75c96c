package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"econwatcher/internal/survey"
)

// Row is a raw row together with the columns derived from it so far.
type Row struct {
	Raw []Cell

	IsTokyo        bool
	Field          Cell
	Region         Cell
	Score          int
	HasScore       bool
	ReasonSentence Cell
}

// Cell returns the raw cell at index, or null if the row is too short.
func (r Row) Cell(index int) Cell {
	if index < 0 || index >= len(r.Raw) {
		return Null
	}
	return r.Raw[index]
}

// Frame is an ordered set of rows moving through the stages. Stages never
// modify the frame they are given.
type Frame []Row

// NewFrame copies a raw table into a frame.
func NewFrame(raw RawTable) Frame {
	frame := make(Frame, len(raw.Rows))
	for i, cells := range raw.Rows {
		frame[i] = Row{Raw: append([]Cell(nil), cells...)}
	}
	return frame
}

func (f Frame) filter(keep func(Row) bool) Frame {
	out := make(Frame, 0, len(f))
	for _, r := range f {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f Frame) mapRows(fn func(Row) Row) Frame {
	out := make(Frame, len(f))
	for i, r := range f {
		out[i] = fn(r)
	}
	return out
}

// FilterMissingScore drops rows that carry no status symbol, these are header
// remnants and footnotes of the raw file.
func FilterMissingScore(f Frame, s survey.Schema) Frame {
	return f.filter(func(r Row) bool {
		return r.Cell(s.Score).Valid
	})
}

var newlineReplacer = strings.NewReplacer("\n", "", "\r", "")

func scrub(c Cell) Cell {
	if !c.Valid {
		return c
	}
	return Value(newlineReplacer.Replace(c.Value))
}

// ScrubNewlines removes embedded line breaks from every cell.
func ScrubNewlines(f Frame) Frame {
	return f.mapRows(func(r Row) Row {
		raw := make([]Cell, len(r.Raw))
		for i, c := range r.Raw {
			raw[i] = scrub(c)
		}
		r.Raw = raw
		r.Field = scrub(r.Field)
		r.Region = scrub(r.Region)
		r.ReasonSentence = scrub(r.ReasonSentence)
		return r
	})
}

func FlagTokyo(f Frame, s survey.Schema) Frame {
	return f.mapRows(func(r Row) Row {
		if !s.HasTokyoFlag() {
			r.IsTokyo = false
			return r
		}
		flag := r.Cell(s.TokyoFlag)
		r.IsTokyo = flag.Valid && strings.Contains(flag.Value, survey.TokyoMarker)
		return r
	})
}

// FillField sets the field of each row, carrying the last labelled field
// forward since the raw files only label the first row of a group. It depends
// on the frame still being in file order.
func FillField(f Frame, s survey.Schema) Frame {
	out := make(Frame, len(f))
	last := Null
	for i, r := range f {
		c := r.Cell(s.Field)
		if c.Valid {
			last = c
		}
		r.Field = last
		out[i] = r
	}
	return out
}

var parenthesized = regexp.MustCompile(`\((.*?)\)`)

// ExtractRegion sets the region to the text inside the first parentheses of
// the field. It must run before CleanField.
func ExtractRegion(f Frame) Frame {
	return f.mapRows(func(r Row) Row {
		r.Region = Null
		if !r.Field.Valid {
			return r
		}
		match := parenthesized.FindStringSubmatch(r.Field.Value)
		if match != nil {
			r.Region = Value(match[1])
		}
		return r
	})
}

// CleanField removes the first parenthesized part of the field and trims it.
func CleanField(f Frame) Frame {
	return f.mapRows(func(r Row) Row {
		if !r.Field.Valid {
			return r
		}
		field := r.Field.Value
		loc := parenthesized.FindStringIndex(field)
		if loc != nil {
			field = field[:loc[0]] + field[loc[1]:]
		}
		r.Field = Value(strings.TrimSpace(field))
		return r
	})
}

// Symbolize converts the status symbol to a score, unknown symbols leave the
// row without a score. The cell is looked up as it is, padded symbols are
// unknown.
func Symbolize(f Frame, s survey.Schema) Frame {
	return f.mapRows(func(r Row) Row {
		r.Score, r.HasScore = 0, false
		c := r.Cell(s.Score)
		if !c.Valid {
			return r
		}
		score, ok := s.ScoreMap[c.Value]
		if ok {
			r.Score, r.HasScore = score, true
		}
		return r
	})
}

func FilterUnscored(f Frame) Frame {
	return f.filter(func(r Row) bool {
		return r.HasScore
	})
}

// FilterEmptySentence drops rows whose reason sentence is blank or a single
// stray character.
func FilterEmptySentence(f Frame, s survey.Schema) Frame {
	return f.filter(func(r Row) bool {
		return utf8.RuneCountInString(r.Cell(s.ReasonSentence).String()) > 1
	})
}

// FilterEmpty drops unscored rows, then rows without a reason sentence.
func FilterEmpty(f Frame, s survey.Schema) Frame {
	return FilterEmptySentence(FilterUnscored(f), s)
}

const middleDot = "・"

// CleanSentence sets the reason sentence, stripping at most one leading
// middle dot.
func CleanSentence(f Frame, s survey.Schema) Frame {
	return f.mapRows(func(r Row) Row {
		c := r.Cell(s.ReasonSentence)
		if c.Valid {
			c = Value(strings.TrimPrefix(c.Value, middleDot))
		}
		r.ReasonSentence = c
		return r
	})
}
