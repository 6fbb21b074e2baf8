// Package db archives decided credit analyses with GORM, on Postgres in
// production and SQLite for tests and local runs.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/kyp/internal/credit/db/models"
	e "github.com/gartstein/kyp/internal/credit/errors"
	"github.com/gartstein/kyp/internal/credit/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultListLimit bounds ListAnalysesByCNPJ when no limit is given.
const DefaultListLimit = 50

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// ConnectTimeout bounds the retries of the initial connection.
	ConnectTimeout time.Duration
}

func (c *Config) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewRepository connects to Postgres, retrying with exponential backoff until
// cfg.ConnectTimeout elapses, and migrates the schema.
func NewRepository(cfg *Config, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("db")

	policy := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeout > 0 {
		policy.MaxElapsedTime = cfg.ConnectTimeout
	}

	var conn *gorm.DB
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = gorm.Open(postgres.Open(cfg.dsn()), &gorm.Config{Logger: gormlogger.Discard})
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return open(conn)
}

// NewSQLiteRepository opens (or creates) a SQLite archive. ":memory:" gives a
// private in-memory database.
func NewSQLiteRepository(path string) (*Repository, error) {
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return open(conn)
}

func open(conn *gorm.DB) (*Repository, error) {
	if err := conn.AutoMigrate(&dbmodels.AnalysisRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: conn}, nil
}

func (r *Repository) SaveAnalysis(ctx context.Context, a *models.Analysis) error {
	record, err := dbmodels.NewAnalysisRecord(a)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, result.Error)
	}
	return nil
}

func (r *Repository) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	var record dbmodels.AnalysisRecord
	result := r.db.WithContext(ctx).First(&record, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return record.Analysis()
}

// ListAnalysesByCNPJ returns the analyses of one company, newest first.
func (r *Repository) ListAnalysesByCNPJ(ctx context.Context, cnpj string, limit int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var records []dbmodels.AnalysisRecord
	result := r.db.WithContext(ctx).
		Where("cnpj = ?", cnpj).
		Order("created_at DESC").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	out := make([]*models.Analysis, 0, len(records))
	for i := range records {
		a, err := records[i].Analysis()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Exec runs a raw statement, for maintenance and test cleanup.
func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	return r.db.WithContext(ctx).Exec(query, params...).Error
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
