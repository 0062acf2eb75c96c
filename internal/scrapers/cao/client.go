// Package cao fetches the economy watchers survey from the Cabinet Office
// website.
package cao

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"econwatcher/internal/assert"
	"econwatcher/internal/htmlutil"
	"econwatcher/internal/pipeline"
	"econwatcher/internal/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

const (
	DefaultIndexUrl            = "https://www5.cao.go.jp/keizai3/watcher_index.html"
	DefaultDistributeDirectory = "https://www5.cao.go.jp/keizai3/"
)

const (
	report_client_list_directory = "client.list-directory"
	report_client_fetch_file     = "client.fetch-file"
)

var tracer = otel.Tracer("econwatcher.scrapers.cao")

type Options struct {
	// IndexUrl is the page linking every monthly directory.
	IndexUrl string
	// DistributeDirectory is what relative directory links are resolved
	// against.
	DistributeDirectory string
	Timeout             time.Duration
	// RequestsPerSecond limits the request rate, 0 disables the limit.
	RequestsPerSecond float64
	// Dump receives every http exchange if it is not nil.
	Dump telemetry.MessageOutput
}

type Client struct {
	http      *resty.Client
	index     string
	directory *url.URL
	tel       telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (Client, error) {
	assert.NotNil(tel, "telemetry")

	tel = telemetry.NewScopedAPI("cao", tel)

	if opts.IndexUrl == "" {
		opts.IndexUrl = DefaultIndexUrl
	}
	if opts.DistributeDirectory == "" {
		opts.DistributeDirectory = DefaultDistributeDirectory
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	directory, err := url.Parse(opts.DistributeDirectory)
	if err != nil {
		return Client{}, fmt.Errorf("parse distribute directory: %w", err)
	}
	if !strings.HasSuffix(directory.Path, "/") {
		directory.Path += "/"
	}

	httpClient := resty.New()
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return Client{
		http:      httpClient,
		index:     opts.IndexUrl,
		directory: directory,
		tel:       tel,
	}, nil
}

func (c Client) get(ctx context.Context, link string) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("get %s: unexpected status %s", link, res.Status())
	}
	return res, nil
}

// ListDirectory returns the monthly directory links of the index page in
// page order, each ending with a "/".
func (c Client) ListDirectory(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ListDirectory")
	defer span.End()

	res, err := c.get(ctx, c.index)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch index page")
		c.tel.ReportBroken(report_client_list_directory, fmt.Errorf("fetch index: %w", err))
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_list_directory, fmt.Errorf("parse html: %w", err))
		return nil, err
	}

	var links []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find("a.bulletLink")) {
		if !strings.Contains(anchor.Href.Path, "menu") {
			continue
		}
		directory := *anchor.Href
		directory.Path = path.Dir(directory.Path) + "/"
		directory.RawPath = ""
		directory.RawQuery = ""
		directory.Fragment = ""

		c.tel.ReportDebug("monthly directory", anchor.Name, directory.String())
		links = append(links, directory.String())
	}
	span.SetAttributes(attribute.Int("links", len(links)))

	return links, nil
}

// FileUrl resolves a file of a monthly directory link.
func (c Client) FileUrl(link, fileName string) (string, error) {
	linkUrl, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	fileUrl, err := url.Parse(fileName)
	if err != nil {
		return "", err
	}
	return c.directory.ResolveReference(linkUrl).ResolveReference(fileUrl).String(), nil
}

// FetchFile downloads a csv file of a monthly directory. The files are
// encoded in Shift_JIS and have no header row.
func (c Client) FetchFile(ctx context.Context, link, fileName string) (pipeline.RawTable, error) {
	ctx, span := tracer.Start(ctx, "FetchFile")
	defer span.End()

	fileUrl, err := c.FileUrl(link, fileName)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_file, fmt.Errorf("resolve url: %w", err), link, fileName)
		return pipeline.RawTable{}, err
	}
	span.SetAttributes(attribute.String("url", fileUrl))

	res, err := c.get(ctx, fileUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch file")
		c.tel.ReportBroken(report_client_fetch_file, fmt.Errorf("fetch: %w", err), fileUrl)
		return pipeline.RawTable{}, err
	}

	table, err := DecodeCsv(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_file, fmt.Errorf("decode csv: %w", err), fileUrl)
		return pipeline.RawTable{}, fmt.Errorf("decode %s: %w", fileUrl, err)
	}
	span.SetAttributes(attribute.Int("rows", table.Len()))

	return table, nil
}

// DecodeCsv decodes a Shift_JIS encoded, headerless csv file. Rows may have
// differing lengths and blank cells become null.
func DecodeCsv(body []byte) (pipeline.RawTable, error) {
	decoded := transform.NewReader(bytes.NewReader(body), japanese.ShiftJIS.NewDecoder())

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return pipeline.RawTable{}, err
	}
	return pipeline.NewRawTable(records), nil
}
