package restyutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[id] = contents
}

func TestInstrumentClientDumpsExchanges(t *testing.T) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(previous)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-test", "yes")
		w.Write([]byte("<p>12 Votes</p>"))
	}))
	defer server.Close()

	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err := client.R().Get(server.URL + "/submission/1/")
	require.NoError(t, err)

	require.Len(t, output.messages, 1)
	for id, message := range output.messages {
		require.True(t, strings.HasSuffix(id, "-GET"))
		require.Contains(t, message, "---- REQUEST ----")
		require.Contains(t, message, "/submission/1/")
		require.Contains(t, message, "X-Test: yes")
		require.Contains(t, message, "<p>12 Votes</p>")
	}
}

func TestInstrumentClientWithoutOutputIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := resty.New()
	InstrumentClient(client, nil, nil)

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	output.Write("000001-GET", "contents")

	entries, err := os.ReadDir(output.Directory())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "000001-GET.txt", entries[0].Name())
}

func TestRequestBodyNilReader(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://contest.test/submission/1/", nil)
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Empty(t, requestBody(req))

	req, err = http.NewRequest(http.MethodPost, "http://contest.test/", strings.NewReader("cid=1"))
	require.NoError(t, err)
	require.Equal(t, "cid=1", requestBody(req))
}
