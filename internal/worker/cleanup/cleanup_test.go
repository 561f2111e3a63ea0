package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

type mockDeleter struct {
	deleted int64
	err     error
	calls   int
}

func (m *mockDeleter) DeleteOrphanEntries(_ context.Context) (int64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.deleted, nil
}

type mockCollector struct {
	orphansDeleted int64
}

func (m *mockCollector) RecordIngestSuccess()                {}
func (m *mockCollector) RecordIngestFailure(_ string)        {}
func (m *mockCollector) RecordIngestLatency(_ time.Duration) {}
func (m *mockCollector) RecordEntriesUpserted(_ int)         {}
func (m *mockCollector) RecordRefreshCycle()                 {}
func (m *mockCollector) RecordOrphansDeleted(count int64)    { m.orphansDeleted += count }

func TestRun_DeletesOrphansAndRecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{deleted: 7}
	collector := &mockCollector{}

	job := NewJob(deleter, collector, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Runがエラーを返した: %v", err)
	}
	if deleter.calls != 1 {
		t.Errorf("削除呼び出し回数 = %d, want 1", deleter.calls)
	}
	if collector.orphansDeleted != 7 {
		t.Errorf("記録された削除件数 = %d, want 7", collector.orphansDeleted)
	}
}

func TestRun_ZeroDeletedIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{deleted: 0}
	collector := &mockCollector{}

	job := NewJob(deleter, collector, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("削除対象ゼロはエラーではない: %v", err)
	}
}

func TestRun_PropagatesDeleterError(t *testing.T) {
	var buf bytes.Buffer
	wantErr := errors.New("db down")
	deleter := &mockDeleter{err: wantErr}
	collector := &mockCollector{}

	job := NewJob(deleter, collector, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("削除エラーが伝播すべき: %v", err)
	}
	if collector.orphansDeleted != 0 {
		t.Error("失敗時はメトリクスを記録しないべき")
	}
}
