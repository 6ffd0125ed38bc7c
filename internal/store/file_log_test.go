package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tgexam/backend/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func TestFileResultLogAppendAndList(t *testing.T) {
	dir := t.TempDir()
	log, err := NewFileResultLog(dir)
	if err != nil {
		t.Fatalf("NewFileResultLog: %v", err)
	}
	ctx := context.Background()

	rows := []model.ResultRecord{
		{ID: "r1", Timestamp: 100, CandidateName: "Anna", Score: 7, Total: 10, Passed: true},
		{ID: "r2", Timestamp: 200, CandidateName: "Boris", Score: 3, Total: 10},
		{ID: "r3", Timestamp: 300, CandidateName: "Anna", Score: 9, Total: 10, Passed: true},
	}
	for i := range rows {
		if err := log.Append(ctx, &rows[i]); err != nil {
			t.Fatalf("Append %s: %v", rows[i].ID, err)
		}
	}

	all, err := log.List(ctx, ResultFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d rows, want 3", len(all))
	}

	ranged, err := log.List(ctx, ResultFilter{FromTS: int64Ptr(150), ToTS: int64Ptr(250)})
	if err != nil {
		t.Fatalf("List ranged: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != "r2" {
		t.Errorf("ranged list = %v, want only r2", ranged)
	}

	byName, err := log.List(ctx, ResultFilter{Candidate: "Anna"})
	if err != nil {
		t.Fatalf("List by candidate: %v", err)
	}
	if len(byName) != 2 {
		t.Errorf("candidate filter returned %d rows, want 2", len(byName))
	}
}

func TestFileResultLogDelete(t *testing.T) {
	log, err := NewFileResultLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileResultLog: %v", err)
	}
	ctx := context.Background()

	if err := log.Append(ctx, &model.ResultRecord{ID: "r1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	found, err := log.Delete(ctx, "r1")
	if err != nil || !found {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", found, err)
	}
	found, err = log.Delete(ctx, "r1")
	if err != nil || found {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", found, err)
	}
}

func TestFileResultLogSurvivesRestartAndCorruption(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	log, err := NewFileResultLog(dir)
	if err != nil {
		t.Fatalf("NewFileResultLog: %v", err)
	}
	if err := log.Append(ctx, &model.ResultRecord{ID: "r1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Reopen: data persists.
	log2, err := NewFileResultLog(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rows, _ := log2.List(ctx, ResultFilter{})
	if len(rows) != 1 {
		t.Fatalf("after reopen: %d rows, want 1", len(rows))
	}

	// Corrupt file degrades to an empty log instead of failing.
	if err := os.WriteFile(filepath.Join(dir, "results.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}
	rows, err = log2.List(ctx, ResultFilter{})
	if err != nil {
		t.Fatalf("List on corrupt file: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("corrupt file listed %d rows, want 0", len(rows))
	}
}
