package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/pkg/models"
)

// Lookup errors for unknown schedule IDs and key IDs.
var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrKeyNotFound      = errors.New("api key not found")
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usages table. One row per key per day.
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalSlots   int    `gorm:"default:0" json:"total_slots"`
	FilledSlots  int    `gorm:"default:0" json:"filled_slots"`
	TotalPeople  int    `gorm:"default:0" json:"total_people"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Employee is one stored roster row. Rows are read back in ID order, which
// is the order they were saved in.
type Employee struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	PersonID   string    `gorm:"not null" json:"id"`
	Name       string    `json:"name"`
	Profession string    `gorm:"not null" json:"profession"`
	Allowed    string    `json:"allowed"`
	Forbidden  string    `json:"forbidden"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScheduleRecord is a stored scheduling run.
type ScheduleRecord struct {
	ID               string                  `gorm:"primaryKey;size:36"`
	KeyID            uint                    `gorm:"index"`
	FilledCount      int                     `gorm:"not null"`
	TotalSlots       int                     `gorm:"not null"`
	ScheduleComplete bool                    `gorm:"not null"`
	FairnessScore    float64                 `gorm:"not null"`
	Passes           int                     `gorm:"not null"`
	Warnings         []string                `gorm:"serializer:json"`
	Unfilled         []models.ConflictReason `gorm:"serializer:json"`
	CreatedAt        time.Time
	Assignments      []AssignmentRecord `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
	Workloads        []WorkloadRecord   `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
}

func (ScheduleRecord) TableName() string { return "schedules" }

// AssignmentRecord is one filled slot of a stored schedule.
type AssignmentRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ScheduleID string `gorm:"index;size:36;not null"`
	Seq        int    `gorm:"not null"`
	Day        string `gorm:"not null"`
	Shift      string `gorm:"not null"`
	Profession string `gorm:"not null"`
	Position   int    `gorm:"not null"`
	PersonID   string `gorm:"not null"`
	Name       string
}

func (AssignmentRecord) TableName() string { return "schedule_assignments" }

// WorkloadRecord is one person of a stored schedule with their shift total.
type WorkloadRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ScheduleID string `gorm:"index;size:36;not null"`
	Seq        int    `gorm:"not null"`
	PersonID   string `gorm:"not null"`
	Name       string
	Profession string `gorm:"not null"`
	Shifts     int    `gorm:"not null"`
}

func (WorkloadRecord) TableName() string { return "schedule_workloads" }

// Open connects to postgres when cfg.URL is set and to the sqlite file at
// cfg.Path otherwise, then migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.URL != "" {
		gormCfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&APIKey{}, &APIUsage{}, &MasterUser{},
		&Employee{},
		&ScheduleRecord{}, &AssignmentRecord{}, &WorkloadRecord{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}
