package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	tel := NewScopedAPI("reader", NewScopedAPI("cao", rec))

	tel.ReportBroken("client.fetch-file", "boom")
	tel.ReportWarning("client.publish-date", "x")
	tel.ReportDebug("fetch month")
	tel.ReportCount("rows", 12)

	require.Equal(t, []Report{{Kind: "broken", ID: "cao: reader: client.fetch-file", Params: []any{"boom"}}}, rec.Reports("broken"))
	require.Equal(t, "cao: reader: client.publish-date", rec.Reports("warning")[0].ID)
	require.Equal(t, "cao: reader: fetch month", rec.Reports("debug")[0].ID)
	require.Equal(t, int64(12), rec.Reports("count")[0].Count)
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	rec := NewRecorder()
	output, err := NewFilesystemOutput(dir, rec)
	require.NoError(t, err)

	client := resty.New()
	InstrumentResty(client, rec, output)

	res, err := client.R().SetContext(context.Background()).Get(server.URL + "/index.html")
	require.NoError(t, err)
	require.Equal(t, "hello", res.String())

	debug := rec.Reports("debug")
	require.Len(t, debug, 2)
	require.Equal(t, report_resty_request, debug[0].ID)
	require.Equal(t, report_resty_response, debug[1].ID)

	dumped, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(dumped), "---- RESPONSE ----"))
	require.True(t, strings.HasSuffix(string(dumped), "hello"))
}

func TestInstrumentRestyError(t *testing.T) {
	rec := NewRecorder()
	client := resty.New()
	InstrumentResty(client, rec, nil)

	_, err := client.R().Get("http://127.0.0.1:1/unreachable")
	require.Error(t, err)
	require.NotEmpty(t, rec.Reports("broken"))
}

func TestSetupWithoutExporters(t *testing.T) {
	otel, err := Setup(context.Background(), "test:telemetry", OtlpConfig{})
	require.NoError(t, err)
	require.Nil(t, otel.TracerProvider)
	require.Nil(t, otel.MeterProvider)
	require.NoError(t, otel.Shutdown(context.Background()))
}
