package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"econwatcher/internal/chrono"
	"econwatcher/internal/pipeline"
	"econwatcher/internal/survey"
	"econwatcher/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	links []string
	err   error
	calls int
}

func (d *fakeDirectory) ListDirectory(ctx context.Context) ([]string, error) {
	d.calls++
	return d.links, d.err
}

type fakeFiles struct {
	mutex   sync.Mutex
	fetched []string
	// delay makes earlier months finish last
	delay func(link string) time.Duration
	fail  string
}

func (f *fakeFiles) FetchFile(ctx context.Context, link, fileName string) (pipeline.RawTable, error) {
	if f.delay != nil {
		select {
		case <-time.After(f.delay(link)):
		case <-ctx.Done():
			return pipeline.RawTable{}, ctx.Err()
		}
	}

	f.mutex.Lock()
	f.fetched = append(f.fetched, link+fileName)
	f.mutex.Unlock()

	if link == f.fail {
		return pipeline.RawTable{}, errors.New("connection reset")
	}

	if fileName == "watcher5.csv" {
		return pipeline.NewRawTable([][]string{
			{"家計動向関連(関東)", "", "○", "百貨店", "・" + link},
			{"", "", "", "", "注"},
		}), nil
	}
	return pipeline.NewRawTable([][]string{
		{"家計動向関連(関東)", "東京都", "○", "百貨店", "来客数の動き", "・" + link},
		{"", "", "▲", "スーパー", "単価の動き", "・" + link},
		{"", "", "", "", "", "注"},
	}), nil
}

// link publishes the survey of `month` two months later.
func link(month time.Time) string {
	published := chrono.AddMonths(month, 2)
	return fmt.Sprintf("/keizai3/%04d/%02d%02dwatcher/", published.Year(), published.Month(), 8)
}

func months(from time.Time, n int) []time.Time {
	out := []time.Time{}
	for i := 0; i < n; i++ {
		out = append(out, chrono.AddMonths(from, i))
	}
	return out
}

func newTestReader(t testing.TB, files *fakeFiles, concurrency int) *Reader {
	links := []string{}
	// newest first like the index page
	all := months(chrono.Month(2018, time.January), 5)
	for i := len(all) - 1; i >= 0; i-- {
		links = append(links, link(all[i]))
	}

	r, err := New(context.Background(), Options{
		Directory:   &fakeDirectory{links: links},
		Files:       files,
		Tel:         telemetry.NewRecorder(),
		Concurrency: concurrency,
	})
	require.NoError(t, err)
	return r
}

func TestPublishDate(t *testing.T) {
	testCases := []struct {
		link     string
		expected time.Time
		fails    bool
	}{
		{link: "/keizai3/2018/0608watcher/", expected: time.Date(2018, 6, 8, 0, 0, 0, 0, chrono.Tokyo())},
		{link: "https://www5.cao.go.jp/keizai3/2019/1209watcher/menu.html", expected: time.Date(2019, 12, 9, 0, 0, 0, 0, chrono.Tokyo())},
		{link: "/keizai3/watcher/", fails: true},
		{link: "/keizai3/2018/watcher/", fails: true},
		{link: "/keizai3/2018/1399watcher/", fails: true},
	}

	for _, test := range testCases {
		date, err := PublishDate(test.link)
		if test.fails {
			require.Error(t, err, test.link)
			continue
		}
		require.NoError(t, err)
		require.True(t, test.expected.Equal(date), test.link)
	}
}

func TestCoveredMonth(t *testing.T) {
	require.Equal(t, chrono.Month(2018, time.April), CoveredMonth(time.Date(2018, 6, 8, 0, 0, 0, 0, chrono.Tokyo())))
	require.Equal(t, chrono.Month(2017, time.December), CoveredMonth(time.Date(2018, 2, 8, 0, 0, 0, 0, chrono.Tokyo())))
}

func TestNew(t *testing.T) {
	dir := &fakeDirectory{links: []string{
		link(chrono.Month(2018, time.March)),
		"/keizai3/kako_watcher.html",
		link(chrono.Month(2018, time.January)),
		// same covered month, the first link wins
		"/keizai3/2018/0309watcher/",
	}}
	rec := telemetry.NewRecorder()

	r, err := New(context.Background(), Options{Directory: dir, Files: &fakeFiles{}, Tel: rec})
	require.NoError(t, err)
	require.Equal(t, 1, dir.calls)

	require.Equal(t, chrono.Month(2018, time.January), r.Earliest())
	require.Equal(t, chrono.Month(2018, time.March), r.Latest())
	require.Equal(t, []Source{
		{Month: chrono.Month(2018, time.January), Link: "/keizai3/2018/0308watcher/"},
		{Month: chrono.Month(2018, time.March), Link: "/keizai3/2018/0508watcher/"},
	}, r.Period().Sources())

	linkOf, ok := r.Period().Link(chrono.Month(2018, time.March))
	require.True(t, ok)
	require.Equal(t, "/keizai3/2018/0508watcher/", linkOf)
	_, ok = r.Period().Link(chrono.Month(2018, time.February))
	require.False(t, ok)

	require.Len(t, rec.Reports("warning"), 1)
}

func TestNewFails(t *testing.T) {
	testCases := []struct {
		name string
		dir  *fakeDirectory
	}{
		{name: "lookup error", dir: &fakeDirectory{err: errors.New("timeout")}},
		{name: "empty listing", dir: &fakeDirectory{}},
		{name: "no dates", dir: &fakeDirectory{links: []string{"/keizai3/watcher/"}}},
	}

	for _, test := range testCases {
		rec := telemetry.NewRecorder()
		r, err := New(context.Background(), Options{
			Directory: test.dir,
			Files:     &fakeFiles{},
			Tel:       rec,
		})
		require.Nil(t, r, test.name)
		require.True(t, errors.Is(err, ErrConstruction), test.name)
		require.Len(t, rec.Reports("broken"), 1, test.name)
	}
}

func TestGetDataAll(t *testing.T) {
	files := &fakeFiles{}
	r := newTestReader(t, files, 1)

	table, err := r.GetData(context.Background(), Query{Kind: "current"})
	require.NoError(t, err)

	require.Equal(t, survey.Current, table.Variant)
	require.Equal(t, []string{
		"date", "industry", "reason_type", "region", "is_tokyo", "field", "score", "reason_sentence",
	}, table.Columns)

	require.Len(t, table.Rows, 10)
	dates := []time.Time{}
	for i, row := range table.Rows {
		if i%2 == 0 {
			dates = append(dates, row.Date)
		}
		require.Equal(t, row.Date, table.Rows[i-i%2].Date)
		require.Equal(t, link(row.Date), row.ReasonSentence)
	}
	require.Equal(t, months(chrono.Month(2018, time.January), 5), dates)
	require.Equal(t, r.Earliest(), table.Rows[0].Date)
	require.Equal(t, r.Latest(), table.Rows[len(table.Rows)-1].Date)

	first := table.Rows[0]
	require.Equal(t, "百貨店", first.Industry.Value)
	require.Equal(t, "来客数の動き", first.ReasonType.Value)
	require.Equal(t, "関東", first.Region.Value)
	require.Equal(t, "家計動向関連", first.Field.Value)
	require.True(t, first.IsTokyo)
	require.Equal(t, 3, first.Score)
	require.Equal(t, 1, table.Rows[1].Score)

	for _, fetched := range files.fetched {
		require.True(t, strings.HasSuffix(fetched, "watcher4.csv"), fetched)
	}
}

func TestGetDataSingleMonth(t *testing.T) {
	r := newTestReader(t, &fakeFiles{}, 1)

	// the day of the month does not matter
	table, err := r.GetData(context.Background(), Query{
		Kind:  "future",
		Start: time.Date(2018, 3, 21, 15, 0, 0, 0, chrono.Tokyo()),
	})
	require.NoError(t, err)
	require.Equal(t, survey.Future, table.Variant)
	require.NotContains(t, table.Columns, "reason_type")
	require.Len(t, table.Rows, 1)
	require.Equal(t, chrono.Month(2018, time.March), table.Rows[0].Date)
	require.False(t, table.Rows[0].ReasonType.Valid)
}

func TestGetDataKeepsCallerMonth(t *testing.T) {
	r := newTestReader(t, &fakeFiles{}, 1)

	testCases := []struct {
		start    time.Time
		end      time.Time
		expected []time.Time
	}{
		{
			// already April in Tokyo
			start:    time.Date(2018, 3, 31, 20, 0, 0, 0, time.UTC),
			expected: []time.Time{chrono.Month(2018, time.March)},
		},
		{
			start:    time.Date(2018, 2, 28, 23, 30, 0, 0, time.FixedZone("EST", -5*60*60)),
			expected: []time.Time{chrono.Month(2018, time.February)},
		},
		{
			// would be June, past the latest month, if read in Tokyo
			start: time.Date(2018, 4, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2018, 5, 31, 22, 0, 0, 0, time.UTC),
			expected: []time.Time{
				chrono.Month(2018, time.April),
				chrono.Month(2018, time.May),
			},
		},
	}

	for _, test := range testCases {
		table, err := r.GetData(context.Background(), Query{Kind: "current", Start: test.start, End: test.end})
		require.NoError(t, err, test.start.String())

		months := []time.Time{}
		for _, row := range table.Rows {
			if len(months) == 0 || !months[len(months)-1].Equal(row.Date) {
				months = append(months, row.Date)
			}
		}
		require.Equal(t, test.expected, months, test.start.String())
	}
}

func TestGetDataRange(t *testing.T) {
	r := newTestReader(t, &fakeFiles{}, 1)

	table, err := r.GetData(context.Background(), Query{
		Kind:  "current",
		Start: chrono.Month(2018, time.February),
		End:   chrono.Month(2018, time.April),
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 6)
	require.Equal(t, chrono.Month(2018, time.February), table.Rows[0].Date)
	require.Equal(t, chrono.Month(2018, time.April), table.Rows[5].Date)

	// only the end was given
	table, err = r.GetData(context.Background(), Query{
		Kind: "current",
		End:  chrono.Month(2018, time.February),
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 4)
}

func TestGetDataKeepsMonthOrderWhenConcurrent(t *testing.T) {
	files := &fakeFiles{
		delay: func(l string) time.Duration {
			// January is published in March and finishes last
			if strings.Contains(l, "/03") {
				return 50 * time.Millisecond
			}
			return 0
		},
	}
	r := newTestReader(t, files, 5)

	table, err := r.GetData(context.Background(), Query{Kind: "current"})
	require.NoError(t, err)

	require.Equal(t, link(chrono.Month(2018, time.January)), files.fetched[len(files.fetched)-1][:len("/keizai3/2018/0308watcher/")])
	for i := 1; i < len(table.Rows); i++ {
		require.False(t, table.Rows[i].Date.Before(table.Rows[i-1].Date))
	}
	require.Equal(t, chrono.Month(2018, time.January), table.Rows[0].Date)
}

func TestGetDataFetchError(t *testing.T) {
	files := &fakeFiles{fail: link(chrono.Month(2018, time.February))}
	r := newTestReader(t, files, 1)

	_, err := r.GetData(context.Background(), Query{Kind: "current"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "2018-02")
	require.Contains(t, err.Error(), "connection reset")
	require.False(t, errors.Is(err, ErrInvalidArgument))
}

func TestGetDataInvalidArguments(t *testing.T) {
	files := &fakeFiles{}
	r := newTestReader(t, files, 1)

	testCases := []struct {
		name     string
		query    Query
		contains []string
	}{
		{
			name:     "unknown kind",
			query:    Query{Kind: "invalid", Start: chrono.Month(2018, time.January)},
			contains: []string{"invalid"},
		},
		{
			name:     "start before earliest",
			query:    Query{Kind: "current", Start: chrono.Month(1945, time.January)},
			contains: []string{"1945-01", "2018-01", "2018-05"},
		},
		{
			name:     "end after latest",
			query:    Query{Kind: "current", Start: chrono.Month(2018, time.January), End: chrono.Month(2999, time.January)},
			contains: []string{"2999-01", "2018-01", "2018-05"},
		},
		{
			name:     "start only, after latest",
			query:    Query{Kind: "current", Start: chrono.Month(2100, time.January)},
			contains: []string{"2100-01"},
		},
		{
			name:     "start after end",
			query:    Query{Kind: "current", Start: chrono.Month(2018, time.May), End: chrono.Month(2018, time.January)},
			contains: []string{"2018-05", "2018-01"},
		},
		{
			name:     "start after end outside the period",
			query:    Query{Kind: "current", Start: chrono.Month(2018, time.January), End: chrono.Month(2017, time.January)},
			contains: []string{"after"},
		},
	}

	for _, test := range testCases {
		_, err := r.GetData(context.Background(), test.query)
		require.True(t, errors.Is(err, ErrInvalidArgument), test.name)
		for _, s := range test.contains {
			require.Contains(t, err.Error(), s, test.name)
		}
	}
	require.Empty(t, files.fetched)
}
