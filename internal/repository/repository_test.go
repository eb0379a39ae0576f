package repository

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestStorage(t *testing.T) *PromStorage {
	t.Helper()

	s, err := NewPromStorage("test")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return s
}

func TestEmptyStorageExposesOnlyParseErrors(t *testing.T) {
	s := newTestStorage(t)

	expected := `
# HELP test_parse_error_total Number of access log lines that could not be parsed
# TYPE test_parse_error_total counter
test_parse_error_total 0
`
	if err := testutil.GatherAndCompare(s.Registry(), strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}

func TestFillStatusCodes(t *testing.T) {
	s := newTestStorage(t)

	if got := testutil.CollectAndCount(s.responses); got != 0 {
		t.Fatalf("expected no status series before fill, got %d", got)
	}

	s.FillStatusCodes()

	if got := testutil.CollectAndCount(s.responses); got != len(HTTPCodes) {
		t.Fatalf("expected %d status series, got %d", len(HTTPCodes), got)
	}

	for _, code := range []string{"100", "404", "499", "599"} {
		if v := testutil.ToFloat64(s.responses.WithLabelValues(code)); v != 0 {
			t.Errorf("status %s: expected 0, got %v", code, v)
		}
	}

	s.IncResponse(404)
	s.FillStatusCodes()

	if v := testutil.ToFloat64(s.responses.WithLabelValues("404")); v != 1 {
		t.Errorf("refill must not reset counters, got %v", v)
	}
}

func TestCounters(t *testing.T) {
	s := newTestStorage(t)

	s.IncResponse(200)
	s.IncResponse(200)
	s.IncResponseCode("GET", "/", "HTTP/1.1", 200)
	s.AddResponseBodySize("GET", "/", "HTTP/1.1", 100)
	s.AddResponseBodySize("GET", "/", "HTTP/1.1", 34)
	s.IncParseError()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"responses", testutil.ToFloat64(s.responses.WithLabelValues("200")), 2},
		{"codes", testutil.ToFloat64(s.codes.WithLabelValues("GET", "/", "HTTP/1.1", "200")), 1},
		{"body size", testutil.ToFloat64(s.bodySize.WithLabelValues("GET", "/", "HTTP/1.1")), 134},
		{"parse errors", testutil.ToFloat64(s.parseErrors), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestBodySizeAbovePrecisionLimit(t *testing.T) {
	s := newTestStorage(t)

	const limit = uint64(1) << 53
	s.AddResponseBodySize("GET", "/", "HTTP/1.1", limit)
	s.AddResponseBodySize("GET", "/", "HTTP/1.1", 1)

	if got := testutil.ToFloat64(s.bodySize.WithLabelValues("GET", "/", "HTTP/1.1")); got != float64(limit) {
		t.Errorf("got %v, want %v", got, float64(limit))
	}
}

func TestGetAll(t *testing.T) {
	s := newTestStorage(t)

	s.IncResponseCode("GET", "/a", "HTTP/1.1", 301)
	s.AddResponseBodySize("GET", "/a", "HTTP/1.1", 7)

	list, err := s.GetAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(list.List) != 3 {
		t.Fatalf("expected 3 series, got %d: %+v", len(list.List), list.List)
	}

	wantIDs := []string{
		"test_parse_error_total",
		"test_response_body_size_total",
		"test_response_code_total",
	}
	for i, id := range wantIDs {
		if list.List[i].ID != id {
			t.Errorf("series %d: ID = %s, want %s", i, list.List[i].ID, id)
		}
	}

	code := list.List[2]
	if code.Labels["status"] != "301" || code.Labels["path"] != "/a" {
		t.Errorf("unexpected labels: %v", code.Labels)
	}
	if code.Delta == nil || *code.Delta != 1 {
		t.Errorf("unexpected value: %v", code.Delta)
	}
	if size := list.List[1]; size.Delta == nil || *size.Delta != 7 {
		t.Errorf("unexpected body size: %v", size.Delta)
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	s := newTestStorage(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.IncResponseCode("GET", "/", "HTTP/1.1", 200)
		}
	}()

	for i := 0; i < 50; i++ {
		if _, err := s.GetAll(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	<-done

	if v := testutil.ToFloat64(s.codes.WithLabelValues("GET", "/", "HTTP/1.1", "200")); v != 1000 {
		t.Errorf("expected 1000, got %v", v)
	}
}
