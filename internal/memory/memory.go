// Package memory keeps a queryable history of agent decisions in SQLite so
// later sessions can be reminded of what an agent did before.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DecisionRecord maps to the 'decisions' table.
type DecisionRecord struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	Agent      string    `gorm:"column:agent;index:idx_agent_session"`
	Session    string    `gorm:"column:session;index:idx_agent_session"`
	RunID      string    `gorm:"column:run_id"`
	Step       int       `gorm:"column:step"`
	Action     string    `gorm:"column:action"`
	Symbol     string    `gorm:"column:symbol"`
	Amount     float64   `gorm:"column:amount"`
	Reason     string    `gorm:"column:reason"`
	Confidence float64   `gorm:"column:confidence"`
	Executed   bool      `gorm:"column:executed"`
	Cash       float64   `gorm:"column:cash"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (DecisionRecord) TableName() string { return "decisions" }

// Statistics aggregates an agent's recorded decisions.
type Statistics struct {
	Agent     string `json:"agent"`
	Total     int64  `json:"total"`
	Buys      int64  `json:"buys"`
	Sells     int64  `json:"sells"`
	NoTrades  int64  `json:"no_trades"`
	Rejected  int64  `json:"rejected"`
	Sessions  int64  `json:"sessions"`
	FirstSeen string `json:"first_session,omitempty"`
	LastSeen  string `json:"last_session,omitempty"`
}

type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("memory database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DecisionRecord{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Record(ctx context.Context, rec *DecisionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// RecentDecisions returns the agent's latest n decisions, newest first.
func (s *Store) RecentDecisions(ctx context.Context, agent string, n int) ([]DecisionRecord, error) {
	var out []DecisionRecord
	q := s.db.WithContext(ctx).Where("agent = ?", agent).Order("session DESC").Order("id DESC")
	if n > 0 {
		q = q.Limit(n)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Statistics(ctx context.Context, agent string) (Statistics, error) {
	st := Statistics{Agent: agent}
	base := func() *gorm.DB { return s.db.WithContext(ctx).Model(&DecisionRecord{}).Where("agent = ?", agent) }

	if err := base().Count(&st.Total).Error; err != nil {
		return st, err
	}
	if err := base().Where("action = ? AND executed = ?", "buy", true).Count(&st.Buys).Error; err != nil {
		return st, err
	}
	if err := base().Where("action = ? AND executed = ?", "sell", true).Count(&st.Sells).Error; err != nil {
		return st, err
	}
	if err := base().Where("action = ?", "no_trade").Count(&st.NoTrades).Error; err != nil {
		return st, err
	}
	if err := base().Where("action <> ? AND executed = ?", "no_trade", false).Count(&st.Rejected).Error; err != nil {
		return st, err
	}
	if err := base().Distinct("session").Count(&st.Sessions).Error; err != nil {
		return st, err
	}
	if st.Total == 0 {
		return st, nil
	}

	var bounds struct {
		First string
		Last  string
	}
	if err := base().Select("MIN(session) AS first, MAX(session) AS last").Scan(&bounds).Error; err != nil {
		return st, err
	}
	st.FirstSeen, st.LastSeen = bounds.First, bounds.Last
	return st, nil
}

// Prune deletes records older than retentionDays and reports how many went.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&DecisionRecord{})
	return res.RowsAffected, res.Error
}
