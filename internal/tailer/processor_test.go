package tailer

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/levinOo/nginx-log-exporter/internal/aggregator"
	"github.com/levinOo/nginx-log-exporter/internal/models"
	"github.com/levinOo/nginx-log-exporter/internal/parser"
	"github.com/levinOo/nginx-log-exporter/internal/repository"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newProcessor(t *testing.T) (*Processor, *repository.PromStorage, *observer.ObservedLogs) {
	t.Helper()

	store, err := repository.NewPromStorage("test")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	core, logs := observer.New(zap.DebugLevel)
	p := NewProcessor(parser.New(), aggregator.New(store), models.AllMetrics(), zap.New(core).Sugar())

	return p, store, logs
}

func TestProcessorValidLine(t *testing.T) {
	p, store, _ := newProcessor(t)

	p.HandleLine(`192.168.1.84 - - [22/Jan/2021:17:24:13 +0000] "GET /favicon.ico HTTP/1.1" 404 134 "http://x/" "UA"`)

	expected := `
# HELP test_parse_error_total Number of access log lines that could not be parsed
# TYPE test_parse_error_total counter
test_parse_error_total 0
# HELP test_response_body_size_total Bytes of HTTP response bodies sent by request info
# TYPE test_response_body_size_total counter
test_response_body_size_total{method="GET",path="/favicon.ico",protocol="HTTP/1.1"} 134
# HELP test_response_code_total Number of HTTP responses by request info and status code
# TYPE test_response_code_total counter
test_response_code_total{method="GET",path="/favicon.ico",protocol="HTTP/1.1",status="404"} 1
# HELP test_responses_total Number of HTTP responses by status code
# TYPE test_responses_total counter
test_responses_total{status="404"} 1
`
	if err := testutil.GatherAndCompare(store.Registry(), strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}

func TestProcessorInvalidLine(t *testing.T) {
	p, store, logs := newProcessor(t)

	p.HandleLine("error")

	expected := `
# HELP test_parse_error_total Number of access log lines that could not be parsed
# TYPE test_parse_error_total counter
test_parse_error_total 1
`
	if err := testutil.GatherAndCompare(store.Registry(), strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}

	warns := logs.FilterLevelExact(zap.WarnLevel).All()
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %d", len(warns))
	}
	if got := warns[0].ContextMap()["line"]; got != "error" {
		t.Errorf("logged line = %v, want error", got)
	}
}

func TestProcessorInvalidUTF8Line(t *testing.T) {
	p, store, logs := newProcessor(t)

	p.HandleLine("10.0.0.1 - - [22/Jan/2021:17:24:13 +0000] \"GET /a\xff HTTP/1.1\" 404 134 \"-\" \"UA\"")

	expected := `
# HELP test_parse_error_total Number of access log lines that could not be parsed
# TYPE test_parse_error_total counter
test_parse_error_total 1
`
	if err := testutil.GatherAndCompare(store.Registry(), strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}

	if n := logs.FilterLevelExact(zap.WarnLevel).Len(); n != 1 {
		t.Errorf("expected one warning, got %d", n)
	}
}

func TestTailerFeedsCounters(t *testing.T) {
	p, store, _ := newProcessor(t)

	const line = `10.0.0.1 - - [22/Jan/2021:17:24:13 +0000] "GET /index.html HTTP/1.1" 200 10 "-" "UA"` + "\n"
	path := tempLog(t, line+line+line+"garbage\n")

	tl := New(path, p, zap.NewNop().Sugar(),
		WithStartPosition(StartBeginning),
		WithWaiter(PollWaiter{Interval: 5 * time.Millisecond}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tl.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		list, err := store.GetAll()
		if err != nil {
			t.Fatal(err)
		}

		var sizes, errs uint64
		for _, m := range list.List {
			switch m.ID {
			case "test_response_body_size_total":
				sizes = *m.Delta
			case "test_parse_error_total":
				errs = *m.Delta
			}
		}

		if sizes == 30 && errs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("counters not updated: sizes=%d errors=%d", sizes, errs)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifyWaiterWakesOnWrite(t *testing.T) {
	path := tempLog(t, "")

	w, err := NewNotifyWaiter(path, 10*time.Second, zap.NewNop().Sugar())
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("x\n"), 0644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.Wait(ctx); err != nil {
		t.Fatalf("waiter did not wake on write: %v", err)
	}
}

func TestNotifyWaiterFallsBackToInterval(t *testing.T) {
	path := tempLog(t, "")

	w, err := NewNotifyWaiter(path, 10*time.Millisecond, zap.NewNop().Sugar())
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotifyWaiterSurvivesWatcherError(t *testing.T) {
	path := tempLog(t, "")

	core, logs := observer.New(zap.WarnLevel)
	w, err := NewNotifyWaiter(path, 50*time.Millisecond, zap.New(core).Sugar())
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()

	go func() {
		w.watcher.Errors <- fsnotify.ErrEventOverflow
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.Wait(ctx); err != nil {
		t.Fatalf("watcher error must not stop waiting: %v", err)
	}

	warns := logs.FilterMessage("File watcher error, waiting for poll interval").All()
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %d", len(warns))
	}
}
