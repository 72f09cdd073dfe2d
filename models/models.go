package models

import (
	"time"

	"gorm.io/datatypes"
)

// CompileRun records one driver-invoked compilation.
type CompileRun struct {
	ID        uint   `gorm:"primaryKey"`
	SourceFile string `gorm:"type:varchar(512);index"`

	// SHA1 of the source content, for change detection
	SourceDigest string `gorm:"type:varchar(40)"`

	// Outcome
	Success    bool `gorm:"index"`
	ErrorCount int  `gorm:"default:0"`
	WarnCount  int  `gorm:"default:0"`

	// Emitted output
	OutputFile string `gorm:"type:varchar(512)"`
	OutputSize int    `gorm:"default:0"`

	// Effective project configuration as JSON
	Config datatypes.JSON

	DurationMS int64
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`

	Diagnostics []DiagnosticRecord `gorm:"foreignKey:RunID"`
}

// DiagnosticRecord is one diagnostic attached to a run.
type DiagnosticRecord struct {
	ID    uint `gorm:"primaryKey"`
	RunID uint `gorm:"index"`

	Severity string `gorm:"type:varchar(10)"`
	Line     int
	Column   int
	Message  string `gorm:"type:text"`
}

// TableName customizations for cleaner names
func (CompileRun) TableName() string       { return "compile_runs" }
func (DiagnosticRecord) TableName() string { return "diagnostics" }
