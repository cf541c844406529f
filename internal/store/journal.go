package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pair-maker-go/infrastructure/logger"
	"pair-maker-go/infrastructure/monitor"
)

var ErrClosed = errors.New("journal closed")

// Options 日志参数。
type Options struct {
	Buffer  int
	Logger  *logger.Logger
	Monitor *monitor.Monitor
}

type item struct {
	rec Record
	ack chan struct{}
}

// Journal persists fills, hedges and order statuses to SQLite. Append never
// blocks the caller: records go through a bounded queue and are dropped when
// it is full.
type Journal struct {
	db      *gorm.DB
	queue   chan item
	done    chan struct{}
	logger  *logger.Logger
	monitor *monitor.Monitor

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	written atomic.Int64
}

// Open 打开（必要时创建）数据库文件并启动后台写入。
func Open(path string, opts Options) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("journal handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&FillRecord{}, &HedgeRecord{}, &StatusRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	j := &Journal{
		db:      db,
		queue:   make(chan item, opts.Buffer),
		done:    make(chan struct{}),
		logger:  log.Named("journal"),
		monitor: opts.Monitor,
	}
	go j.writer()
	return j, nil
}

// Append 入队；队列满或已关闭时丢弃并返回 false。
func (j *Journal) Append(rec Record) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return false
	}
	select {
	case j.queue <- item{rec: rec}:
		return true
	default:
		j.dropped.Add(1)
		if j.monitor != nil {
			j.monitor.RecordJournalDropped()
		}
		return false
	}
}

// Flush 等待此前入队的记录全部落盘。
func (j *Journal) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrClosed
	}
	select {
	case j.queue <- item{ack: ack}:
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	j.mu.RUnlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Journal) writer() {
	defer close(j.done)
	for it := range j.queue {
		if it.ack != nil {
			close(it.ack)
			continue
		}
		if err := j.db.Create(it.rec).Error; err != nil {
			j.logger.LogError(err, zap.String("table", it.rec.TableName()))
			continue
		}
		j.written.Add(1)
		if j.monitor != nil {
			j.monitor.RecordJournalWritten()
		}
	}
}

// Close 停止接收，写完队列中剩余记录后关闭数据库。
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) Dropped() int64 { return j.dropped.Load() }

func (j *Journal) Written() int64 { return j.written.Load() }

// Fills 按写入顺序返回全部成交。
func (j *Journal) Fills(ctx context.Context) ([]FillRecord, error) {
	var out []FillRecord
	err := j.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (j *Journal) Hedges(ctx context.Context) ([]HedgeRecord, error) {
	var out []HedgeRecord
	err := j.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (j *Journal) Statuses(ctx context.Context) ([]StatusRecord, error) {
	var out []StatusRecord
	err := j.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}
