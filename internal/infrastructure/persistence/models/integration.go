package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/ordersync/internal/domain/integration"
)

// SyncAttemptModel is the persistence model for one reconciliation audit record.
type SyncAttemptModel struct {
	ID           uuid.UUID               `gorm:"type:uuid;primary_key"`
	RunID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	OrderID      string                  `gorm:"type:text;not null;index"`
	ExternalID   string                  `gorm:"type:text;not null"`
	Outcome      integration.SyncOutcome `gorm:"type:text;not null"`
	ERPOrderID   string                  `gorm:"column:erp_order_id;type:text;not null"`
	CustomerID   string                  `gorm:"type:text;not null"`
	Attempts     int                     `gorm:"not null"`
	TotalsValid  bool                    `gorm:"not null"`
	ErrorCode    string                  `gorm:"type:text;not null"`
	ErrorMessage string                  `gorm:"type:text;not null"`
	StartedAt    time.Time               `gorm:"not null"`
	FinishedAt   time.Time               `gorm:"not null"`
	CreatedAt    time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncAttemptModel) TableName() string {
	return "sync_attempts"
}

// ToDomain converts the persistence model to a domain SyncAttempt.
func (m *SyncAttemptModel) ToDomain() *integration.SyncAttempt {
	return &integration.SyncAttempt{
		ID:           m.ID,
		RunID:        m.RunID,
		OrderID:      m.OrderID,
		ExternalID:   m.ExternalID,
		Outcome:      m.Outcome,
		ERPOrderID:   m.ERPOrderID,
		CustomerID:   m.CustomerID,
		Attempts:     m.Attempts,
		TotalsValid:  m.TotalsValid,
		ErrorCode:    m.ErrorCode,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
	}
}

// FromDomain populates the model from a domain SyncAttempt.
func (m *SyncAttemptModel) FromDomain(a *integration.SyncAttempt) {
	m.ID = a.ID
	m.RunID = a.RunID
	m.OrderID = a.OrderID
	m.ExternalID = a.ExternalID
	m.Outcome = a.Outcome
	m.ERPOrderID = a.ERPOrderID
	m.CustomerID = a.CustomerID
	m.Attempts = a.Attempts
	m.TotalsValid = a.TotalsValid
	m.ErrorCode = a.ErrorCode
	m.ErrorMessage = a.ErrorMessage
	m.StartedAt = a.StartedAt
	m.FinishedAt = a.FinishedAt
}

// SyncAttemptModelFromDomain creates a new persistence model from a domain SyncAttempt.
func SyncAttemptModelFromDomain(a *integration.SyncAttempt) *SyncAttemptModel {
	m := &SyncAttemptModel{}
	m.FromDomain(a)
	return m
}
