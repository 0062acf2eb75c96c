package reader

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"econwatcher/internal/chrono"
)

// publicationLag is how many months after the covered month a survey is
// published.
const publicationLag = 2

var fourDigits = regexp.MustCompile(`\d{4}`)

// PublishDate reads the publish date out of a monthly directory link, the
// links look like "/keizai3/2018/0608watcher/" where the 4-digit runs
// concatenate to YYYYMMDD.
func PublishDate(link string) (time.Time, error) {
	yyyymmdd := strings.Join(fourDigits.FindAllString(link, -1), "")
	date, err := time.ParseInLocation("20060102", yyyymmdd, chrono.Tokyo())
	if err != nil {
		return time.Time{}, fmt.Errorf("publish date of %q: %w", link, err)
	}
	return date, nil
}

// CoveredMonth returns the month the survey published on `published` is
// about.
func CoveredMonth(published time.Time) time.Time {
	return chrono.AddMonths(chrono.MonthStart(published), -publicationLag)
}

// Source is a month for which a survey file is known to exist.
type Source struct {
	Month time.Time
	Link  string
}

// Period is the ascending, duplicate free list of available months.
type Period struct {
	sources []Source
}

func newPeriod(sources []Source) Period {
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(a, b Source) int {
		return a.Month.Compare(b.Month)
	})
	sorted = slices.CompactFunc(sorted, func(a, b Source) bool {
		return a.Month.Equal(b.Month)
	})
	return Period{sources: sorted}
}

func (p Period) Len() int {
	return len(p.sources)
}

// Sources returns a copy of every available month in ascending order.
func (p Period) Sources() []Source {
	return slices.Clone(p.sources)
}

func (p Period) Earliest() time.Time {
	return p.sources[0].Month
}

func (p Period) Latest() time.Time {
	return p.sources[len(p.sources)-1].Month
}

// Link returns the directory link of a month.
func (p Period) Link(month time.Time) (string, bool) {
	idx, found := slices.BinarySearchFunc(p.sources, month, func(s Source, m time.Time) int {
		return s.Month.Compare(m)
	})
	if !found {
		return "", false
	}
	return p.sources[idx].Link, true
}

// Between returns the available months within [start, end].
func (p Period) Between(start, end time.Time) []Source {
	var out []Source
	for _, s := range p.sources {
		if s.Month.Before(start) || s.Month.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}
