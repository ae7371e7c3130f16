package audit

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/models"
)

// LogEntry represents a log entry to be created
type LogEntry struct {
	OperatorID uint
	IPAddress  string

	Action     models.AuditAction
	CampaignID *uint
	ScanID     *uint
	FromStatus models.RewardStatus
	ToStatus   models.RewardStatus
	Amount     *decimal.Decimal
	Detail     string

	Result models.AuditResult
	Err    error
}

// Logger writes audit rows in batches from a background goroutine
type Logger struct {
	db        *gorm.DB
	batchSize int
	batch     chan *models.AuditLog
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewLogger creates a new audit logger and starts its batch processor
func NewLogger(db *gorm.DB) *Logger {
	l := &Logger{
		db:        db,
		batchSize: 100,
		batch:     make(chan *models.AuditLog, 1000),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go l.processBatch()

	return l
}

func newRow(entry *LogEntry) *models.AuditLog {
	row := &models.AuditLog{
		OperatorID: entry.OperatorID,
		IPAddress:  entry.IPAddress,
		Action:     entry.Action,
		CampaignID: entry.CampaignID,
		ScanID:     entry.ScanID,
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		Amount:     entry.Amount,
		Detail:     entry.Detail,
		Result:     entry.Result,
		CreatedAt:  time.Now(),
	}
	if entry.Err != nil {
		row.ErrorMessage = entry.Err.Error()
		if row.Result == "" {
			row.Result = models.AuditFailed
		}
	}
	if row.Result == "" {
		row.Result = models.AuditSuccess
	}
	return row
}

// Log queues an audit row. When the queue is full it writes synchronously.
func (l *Logger) Log(ctx context.Context, entry *LogEntry) {
	if l == nil {
		return
	}
	row := newRow(entry)

	select {
	case l.batch <- row:
	default:
		if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
			logger.Error().Err(err).Str("action", string(row.Action)).Msg("Failed to write audit log")
		}
	}
}

// LogSync writes an audit row immediately
func (l *Logger) LogSync(ctx context.Context, entry *LogEntry) (*models.AuditLog, error) {
	row := newRow(entry)
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (l *Logger) processBatch() {
	defer close(l.done)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var batch []*models.AuditLog

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := l.db.CreateInBatches(batch, l.batchSize).Error; err != nil {
			// On error, try one by one
			for _, row := range batch {
				if err := l.db.Create(row).Error; err != nil {
					logger.Error().Err(err).Str("action", string(row.Action)).Msg("Dropped audit log")
				}
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-l.stop:
			// Drain whatever is still queued
			for {
				select {
				case row := <-l.batch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		case row := <-l.batch:
			batch = append(batch, row)
			if len(batch) >= l.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Stop flushes pending rows and stops the background writer
func (l *Logger) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// QueryParams represents query parameters for audit logs
type QueryParams struct {
	OperatorID *uint
	CampaignID *uint
	ScanID     *uint
	Action     models.AuditAction
	Result     models.AuditResult
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Query queries audit logs with filters
func (l *Logger) Query(ctx context.Context, params *QueryParams) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := l.db.WithContext(ctx).Model(&models.AuditLog{})

	if params.OperatorID != nil {
		query = query.Where("operator_id = ?", *params.OperatorID)
	}
	if params.CampaignID != nil {
		query = query.Where("campaign_id = ?", *params.CampaignID)
	}
	if params.ScanID != nil {
		query = query.Where("scan_id = ?", *params.ScanID)
	}
	if params.Action != "" {
		query = query.Where("action = ?", params.Action)
	}
	if params.Result != "" {
		query = query.Where("result = ?", params.Result)
	}
	if params.StartTime != nil {
		query = query.Where("created_at >= ?", *params.StartTime)
	}
	if params.EndTime != nil {
		query = query.Where("created_at <= ?", *params.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	if err := query.Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// Cleanup removes old audit logs based on retention policy
func (l *Logger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := l.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}
