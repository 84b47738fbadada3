package snapshot

import (
	"errors"
	"testing"

	"market-sync/src/helpers"
	"market-sync/src/logger"
)

// -----------------------------------------------------------------------------

// fakeNetwork serves canned bodies keyed by the cursor parameter.
type fakeNetwork struct {
	pages map[string][]byte // cursor -> body, "" for the first page
	fail  error
	calls []map[string]string
}

func (f *fakeNetwork) Get(url string, params map[string]string) ([]byte, error) {
	f.calls = append(f.calls, params)
	if f.fail != nil {
		return nil, f.fail
	}
	body, ok := f.pages[params["cursor"]]
	if !ok {
		return nil, helpers.NewSnapshotError(404, "unknown cursor", nil)
	}
	return body, nil
}

// -----------------------------------------------------------------------------

func TestLoaderTablePagination(t *testing.T) {
	net := &fakeNetwork{pages: map[string][]byte{
		"": []byte(`{"order":["BTCUSDT"],"entities":[],"metrics":[],"cursor_next":"p2"}`),
		"p2": []byte(`{"order":["ETHUSDT"],"entities":[],"metrics":[],"cursor_next":""}`),
	}}
	l := NewLoader("https://api.test", net, logger.NewLogger("ERROR", "test"))

	page, err := l.BootstrapTable("crypto", "24h", 200)
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if page.CursorNext != "p2" {
		t.Fatalf("expected continuation cursor, got %q", page.CursorNext)
	}
	if net.calls[0]["scope"] != "crypto" || net.calls[0]["window"] != "24h" || net.calls[0]["limit"] != "200" {
		t.Fatalf("wrong query params: %v", net.calls[0])
	}
	if _, ok := net.calls[0]["cursor"]; ok {
		t.Fatalf("first page must not carry a cursor")
	}

	page, err = l.PageTable("crypto", "24h", 200, page.CursorNext)
	if err != nil {
		t.Fatalf("page fetch failed: %v", err)
	}
	if page.CursorNext != "" {
		t.Fatalf("expected final page, got cursor %q", page.CursorNext)
	}
	if net.calls[1]["cursor"] != "p2" {
		t.Fatalf("cursor not forwarded: %v", net.calls[1])
	}
}

func TestLoaderSeriesPagination(t *testing.T) {
	net := &fakeNetwork{pages: map[string][]byte{
		"": []byte(`{"candles":[{"time":60,"close":1}],"cursor_next":"c2"}`),
		"c2": []byte(`{"candles":[{"time":120,"close":2}],"cursor_next":""}`),
	}}
	l := NewLoader("https://api.test", net, logger.NewLogger("ERROR", "test"))

	page, err := l.BootstrapSeries("BTCUSDT", "1m", 500)
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if len(page.Candles) != 1 || page.Candles[0].Time != 60 {
		t.Fatalf("unexpected first page: %+v", page.Candles)
	}

	page, err = l.PageSeries("BTCUSDT", "1m", 500, page.CursorNext)
	if err != nil {
		t.Fatalf("page fetch failed: %v", err)
	}
	if len(page.Candles) != 1 || page.Candles[0].Time != 120 {
		t.Fatalf("unexpected second page: %+v", page.Candles)
	}
}

func TestLoaderSurfacesTypedError(t *testing.T) {
	net := &fakeNetwork{fail: helpers.NewSnapshotError(503, "GET /v1/table", nil)}
	l := NewLoader("https://api.test", net, logger.NewLogger("ERROR", "test"))

	_, err := l.BootstrapTable("crypto", "24h", 200)
	var snapErr *helpers.SnapshotError
	if !errors.As(err, &snapErr) {
		t.Fatalf("expected *SnapshotError, got %T", err)
	}
	if snapErr.StatusCode != 503 {
		t.Fatalf("status code lost: %d", snapErr.StatusCode)
	}
}

func TestLoaderMalformedBody(t *testing.T) {
	net := &fakeNetwork{pages: map[string][]byte{"": []byte(`{{{`)}}
	l := NewLoader("https://api.test", net, logger.NewLogger("ERROR", "test"))

	_, err := l.BootstrapTable("crypto", "24h", 200)
	var snapErr *helpers.SnapshotError
	if !errors.As(err, &snapErr) {
		t.Fatalf("expected *SnapshotError for malformed body, got %T", err)
	}
}

func TestLoaderEmptySymbolRejected(t *testing.T) {
	l := NewLoader("https://api.test", &fakeNetwork{}, logger.NewLogger("ERROR", "test"))
	if _, err := l.BootstrapSeries("", "1m", 500); err == nil {
		t.Fatalf("empty symbol accepted")
	}
}
