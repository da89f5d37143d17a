package store

import "time"

// TestRun is the run metadata row, one per test execution.
type TestRun struct {
	ID        uint      `gorm:"primaryKey"`
	TestID    string    `gorm:"not null;uniqueIndex"`
	Browser   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName overrides the default pluralization.
func (TestRun) TableName() string { return "test_runs" }

// CoachAdvice is one persisted advisory finding. Category-level scores
// are stored as pseudo-advice rows whose advice_id equals the category
// name.
type CoachAdvice struct {
	ID           uint   `gorm:"primaryKey"`
	TestID       string `gorm:"not null;uniqueIndex:idx_coach_advice_key"`
	URL          string `gorm:"not null"`
	GroupName    string `gorm:"not null;uniqueIndex:idx_coach_advice_key"`
	CategoryName string `gorm:"not null;uniqueIndex:idx_coach_advice_key"`
	AdviceID     string `gorm:"not null;uniqueIndex:idx_coach_advice_key"`
	Score        float64
	Title        string
	Description  string
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName overrides the default pluralization.
func (CoachAdvice) TableName() string { return "coach_advice" }

// CoachScores holds the three category-level scores for a run. The
// values come straight from the advice tree's category nodes; a nil
// score means the category was absent from the source, which is
// distinct from a zero score.
type CoachScores struct {
	ID                uint      `gorm:"primaryKey"`
	TestID            string    `gorm:"not null;uniqueIndex"`
	PerformanceScore  *float64  `gorm:"column:performance_score"`
	PrivacyScore      *float64  `gorm:"column:privacy_score"`
	BestPracticeScore *float64  `gorm:"column:bestpractice_score"`
	CreatedAt         time.Time `gorm:"not null"`
}

// TableName overrides the default pluralization.
func (CoachScores) TableName() string { return "coach_scores" }

// PagexrayRow is the aggregate counters of one content type for a run
// page.
type PagexrayRow struct {
	ID           uint   `gorm:"primaryKey"`
	TestID       string `gorm:"not null;uniqueIndex:idx_pagexray_key"`
	URL          string `gorm:"not null"`
	GroupName    string `gorm:"not null;uniqueIndex:idx_pagexray_key"`
	Browser      string `gorm:"not null"`
	ContentType  string `gorm:"not null;uniqueIndex:idx_pagexray_key"`
	Requests     int64
	ContentSize  int64
	TransferSize int64
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName overrides the default pluralization.
func (PagexrayRow) TableName() string { return "pagexray_data" }
