package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/socialzwater/backend/internal/models"
	"github.com/socialzwater/backend/internal/testutil"
)

func TestLogIsFlushedOnStop(t *testing.T) {
	db := testutil.NewDB(t)
	l := NewLogger(db)
	ctx := context.Background()

	scanID := uint(4)
	l.Log(ctx, &LogEntry{
		OperatorID: 1,
		Action:     models.AuditRewardUpdate,
		ScanID:     &scanID,
		FromStatus: models.RewardPending,
		ToStatus:   models.RewardGranted,
	})
	l.Log(ctx, &LogEntry{OperatorID: 1, Action: models.AuditRewardUpdate, Err: errors.New("scan not found")})
	l.Stop()

	logs, total, err := l.Query(ctx, &QueryParams{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Fatalf("expected 2 rows, got %d", total)
	}

	failed, _, _ := l.Query(ctx, &QueryParams{Result: models.AuditFailed})
	if len(failed) != 1 || failed[0].ErrorMessage != "scan not found" {
		t.Fatalf("unexpected failed rows: %+v", failed)
	}
	byScan, _, _ := l.Query(ctx, &QueryParams{ScanID: &scanID})
	if len(byScan) != 1 || byScan[0].ToStatus != models.RewardGranted {
		t.Fatalf("unexpected scan rows: %+v", byScan)
	}
}

func TestCleanupRemovesExpiredRows(t *testing.T) {
	db := testutil.NewDB(t)
	l := NewLogger(db)
	defer l.Stop()
	ctx := context.Background()

	old, err := l.LogSync(ctx, &LogEntry{OperatorID: 1, Action: models.AuditLogin})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := db.Model(old).Update("created_at", time.Now().AddDate(0, 0, -100)).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}
	if _, err := l.LogSync(ctx, &LogEntry{OperatorID: 1, Action: models.AuditLogin}); err != nil {
		t.Fatalf("log: %v", err)
	}

	n, err := l.Cleanup(ctx, 90)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted row, got %d", n)
	}
}
