// Package reader reads the economy watchers survey for a range of months.
//
// A Reader lists the monthly directories once when it is created, every
// query after that is answered against that list.
package reader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"econwatcher/internal/assert"
	"econwatcher/internal/chrono"
	"econwatcher/internal/pipeline"
	"econwatcher/internal/survey"
	"econwatcher/internal/telemetry"

	"golang.org/x/sync/errgroup"
)

const (
	report_reader_new      = "reader.new"
	report_reader_get_data = "reader.get-data"
)

var (
	// ErrInvalidArgument is returned for queries that can never succeed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConstruction is returned when the available months could not be
	// determined.
	ErrConstruction = errors.New("reader construction failed")
)

// DirectoryAPI lists the monthly directories of the survey.
type DirectoryAPI interface {
	ListDirectory(ctx context.Context) ([]string, error)
}

// FileAPI fetches one csv file of a monthly directory.
type FileAPI interface {
	FetchFile(ctx context.Context, link, fileName string) (pipeline.RawTable, error)
}

type Options struct {
	Directory DirectoryAPI
	Files     FileAPI
	Tel       telemetry.API
	// Concurrency is the amount of months fetched at once, it defaults to 1.
	Concurrency int
}

type Reader struct {
	files       FileAPI
	tel         telemetry.API
	concurrency int
	period      Period
}

// New lists the monthly directories and builds the available period.
func New(ctx context.Context, opts Options) (*Reader, error) {
	assert.NotNil(opts.Directory, "directory api")
	assert.NotNil(opts.Files, "file api")
	assert.NotNil(opts.Tel, "telemetry")

	tel := telemetry.NewScopedAPI("reader", opts.Tel)

	links, err := opts.Directory.ListDirectory(ctx)
	if err != nil {
		tel.ReportBroken(report_reader_new, fmt.Errorf("list directory: %w", err))
		return nil, fmt.Errorf("%w: list directory: %w", ErrConstruction, err)
	}
	if len(links) == 0 {
		tel.ReportBroken(report_reader_new, "no monthly directories listed")
		return nil, fmt.Errorf("%w: no monthly directories listed", ErrConstruction)
	}

	sources := make([]Source, 0, len(links))
	for _, link := range links {
		published, err := PublishDate(link)
		if err != nil {
			tel.ReportWarning(report_reader_new, err)
			continue
		}
		sources = append(sources, Source{
			Month: CoveredMonth(published),
			Link:  link,
		})
	}
	if len(sources) == 0 {
		err := fmt.Errorf("none of %d directory links carry a publish date", len(links))
		tel.ReportBroken(report_reader_new, err)
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}

	period := newPeriod(sources)
	tel.ReportDebug(
		"available period",
		period.Earliest().Format(chrono.MonthLayout),
		period.Latest().Format(chrono.MonthLayout),
		period.Len(),
	)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Reader{
		files:       opts.Files,
		tel:         tel,
		concurrency: concurrency,
		period:      period,
	}, nil
}

func (r *Reader) Period() Period {
	return r.period
}

func (r *Reader) Earliest() time.Time {
	return r.period.Earliest()
}

func (r *Reader) Latest() time.Time {
	return r.period.Latest()
}

// Query selects the data to read. A zero Start and End reads every available
// month, a zero End reads only the Start month.
type Query struct {
	Kind  string
	Start time.Time
	End   time.Time
}

// Row is a cleaned record stamped with the month it covers.
type Row struct {
	Date time.Time
	pipeline.Record
}

type Table struct {
	Variant survey.Variant
	Columns []string
	Rows    []Row
}

func (r *Reader) availableRange() string {
	return fmt.Sprintf(
		"available period: [%s - %s]",
		r.Earliest().Format(chrono.MonthLayout),
		r.Latest().Format(chrono.MonthLayout),
	)
}

// queryMonth truncates a query bound to its calendar month as seen in its own
// location, so a UTC time late on March 31st still selects March.
func queryMonth(t time.Time) time.Time {
	return chrono.Month(t.Year(), t.Month())
}

// resolve applies the defaults of a query and validates it.
func (r *Reader) resolve(q Query) (survey.Schema, time.Time, time.Time, error) {
	start, end := q.Start, q.End
	switch {
	case start.IsZero() && end.IsZero():
		start, end = r.Earliest(), r.Latest()
	case end.IsZero():
		end = start
	case start.IsZero():
		start = r.Earliest()
	}
	start = queryMonth(start)
	end = queryMonth(end)

	variant, err := survey.ParseKind(q.Kind)
	if err != nil {
		return survey.Schema{}, start, end, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	schema := survey.Lookup(variant)

	if start.After(end) {
		return schema, start, end, fmt.Errorf(
			"%w: start %s must not be after end %s",
			ErrInvalidArgument,
			start.Format(chrono.MonthLayout),
			end.Format(chrono.MonthLayout),
		)
	}
	if start.Before(r.Earliest()) {
		return schema, start, end, fmt.Errorf(
			"%w: data on start %s is not available, %s",
			ErrInvalidArgument,
			start.Format(chrono.MonthLayout),
			r.availableRange(),
		)
	}
	if end.After(r.Latest()) {
		return schema, start, end, fmt.Errorf(
			"%w: data on end %s is not available, %s",
			ErrInvalidArgument,
			end.Format(chrono.MonthLayout),
			r.availableRange(),
		)
	}
	return schema, start, end, nil
}

// GetData reads, cleans and concatenates every available month of the query
// in ascending month order.
func (r *Reader) GetData(ctx context.Context, q Query) (Table, error) {
	schema, start, end, err := r.resolve(q)
	if err != nil {
		return Table{}, err
	}

	months := r.period.Between(start, end)
	r.tel.ReportDebug("read months", schema.Variant.String(), len(months))

	// each month owns its slot so the output stays in month order no matter
	// which fetch finishes first
	results := make([][]Row, len(months))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, source := range months {
		i, source := i, source
		group.Go(func() error {
			rows, err := r.readMonth(groupCtx, schema, source)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		r.tel.ReportBroken(report_reader_get_data, err)
		return Table{}, err
	}

	total := 0
	for _, rows := range results {
		total += len(rows)
	}
	table := Table{
		Variant: schema.Variant,
		Columns: schema.OutputColumns(),
		Rows:    make([]Row, 0, total),
	}
	for _, rows := range results {
		table.Rows = append(table.Rows, rows...)
	}
	r.tel.ReportCount(fmt.Sprintf("rows.%s", schema.Variant), int64(total))

	return table, nil
}

func (r *Reader) readMonth(ctx context.Context, schema survey.Schema, source Source) ([]Row, error) {
	month := source.Month.Format(chrono.MonthLayout)
	r.tel.ReportDebug("read month", month, source.Link, schema.FileName)

	raw, err := r.files.FetchFile(ctx, source.Link, schema.FileName)
	if err != nil {
		return nil, fmt.Errorf("read %s of %s: %w", schema.FileName, month, err)
	}

	records, stats := pipeline.CleanWithStats(raw, schema)
	r.tel.ReportDebug(
		"cleaned month",
		month,
		fmt.Sprintf(
			"in=%d missing_score=%d unmapped_score=%d empty_sentence=%d out=%d",
			stats.In, stats.MissingScore, stats.UnmappedScore, stats.EmptySentence, stats.Out,
		),
	)

	rows := make([]Row, len(records))
	for i, record := range records {
		rows[i] = Row{Date: source.Month, Record: record}
	}
	return rows, nil
}
