package worker

import (
	"strings"
	"testing"

	"ffsync/internal/amqp"
	"ffsync/internal/core"
)

func TestReportLoggerHandle(t *testing.T) {
	out := &syncBuffer{}
	h := NewReportLogger(newTestLogger(out))

	msg := amqp.NewReportMessage("run-1", core.WriteReport{
		Layout:    "daily",
		SheetName: "report",
		Manager:   "Kishi",
		Entries: []core.ReportEntry{
			{Account: "alice", Metric: "followers", Address: "C3", Value: 10, Applied: true},
			{Account: "bob", Metric: "followers", Address: "C4", Value: 3, Error: "quota exceeded"},
		},
	})
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if h.Seen() != 1 {
		t.Fatalf("seen = %d", h.Seen())
	}

	logs := out.String()
	for _, want := range []string{"Write report received", "run_id=run-1", "applied=1", "failed=1", "Cell write failed", "cell=C4", "component=amqp"} {
		if !strings.Contains(logs, want) {
			t.Errorf("log output missing %q:\n%s", want, logs)
		}
	}
}

func TestReportLoggerNilMessage(t *testing.T) {
	if err := NewReportLogger(nil).Handle(nil); err == nil {
		t.Fatal("expected error")
	}
}
