package repository

import (
	"time"

	"github.com/ferdikurnia/mailblast/internal/domain"
)

// CampaignModel is the persistence model for the campaigns table.
type CampaignModel struct {
	ID              string                `gorm:"type:uuid;primaryKey"`
	UserID          string                `gorm:"type:varchar(36);not null"`
	Name            string                `gorm:"type:varchar(255);not null"`
	Subject         string                `gorm:"type:text;not null"`
	HTMLContent     string                `gorm:"type:text;not null"`
	ParameterValues map[string]string     `gorm:"type:jsonb;serializer:json"`
	Status          domain.CampaignStatus `gorm:"type:varchar(20);not null"`
	RecipientCount  int                   `gorm:"not null;default:0"`
	SuccessCount    int                   `gorm:"not null;default:0"`
	FailCount       int                   `gorm:"not null;default:0"`
	LastError       *string               `gorm:"type:text"`
	StartedAt       *time.Time
	LastProcessedAt *time.Time
	CompletedAt     *time.Time
	LockedUntil     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

// RecipientModel is the persistence model for the recipients table.
type RecipientModel struct {
	ID           string                 `gorm:"type:uuid;primaryKey"`
	CampaignID   string                 `gorm:"type:uuid;not null"`
	Email        string                 `gorm:"type:varchar(255);not null"`
	Name         *string                `gorm:"type:varchar(255)"`
	Metadata     map[string]string      `gorm:"type:jsonb;serializer:json"`
	Status       domain.RecipientStatus `gorm:"type:varchar(10);not null"`
	ErrorMessage *string                `gorm:"type:text"`
	SentAt       *time.Time
	CreatedAt    time.Time
}

func (RecipientModel) TableName() string {
	return "recipients"
}

// SmtpConfigModel is the persistence model for the smtp_configs table.
type SmtpConfigModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:varchar(36);not null"`
	Host      string `gorm:"type:varchar(255);not null"`
	Port      int    `gorm:"not null"`
	Secure    bool   `gorm:"not null;default:false"`
	Username  string `gorm:"type:varchar(255);not null"`
	Password  string `gorm:"type:varchar(255);not null"`
	FromEmail string `gorm:"type:varchar(255);not null"`
	FromName  string `gorm:"type:varchar(255)"`
	LastUsed  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SmtpConfigModel) TableName() string {
	return "smtp_configs"
}

// EmailLogModel is the persistence model for the append-only email_logs table.
type EmailLogModel struct {
	ID           string                `gorm:"type:uuid;primaryKey"`
	CampaignID   string                `gorm:"type:uuid;not null"`
	RecipientID  string                `gorm:"type:uuid;not null"`
	SmtpConfigID string                `gorm:"type:uuid;not null"`
	Status       domain.EmailLogStatus `gorm:"type:varchar(10);not null"`
	ErrorMessage *string               `gorm:"type:text"`
	SentAt       time.Time             `gorm:"not null"`
}

func (EmailLogModel) TableName() string {
	return "email_logs"
}

func campaignModelFromDomain(c *domain.Campaign) *CampaignModel {
	if c == nil {
		return nil
	}

	return &CampaignModel{
		ID:              c.ID,
		UserID:          c.UserID,
		Name:            c.Name,
		Subject:         c.Subject,
		HTMLContent:     c.HTMLContent,
		ParameterValues: c.ParameterValues,
		Status:          c.Status,
		RecipientCount:  c.RecipientCount,
		SuccessCount:    c.SuccessCount,
		FailCount:       c.FailCount,
		LastError:       c.LastError,
		StartedAt:       c.StartedAt,
		LastProcessedAt: c.LastProcessedAt,
		CompletedAt:     c.CompletedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func campaignModelToDomain(m *CampaignModel) *domain.Campaign {
	if m == nil {
		return nil
	}

	return &domain.Campaign{
		ID:              m.ID,
		UserID:          m.UserID,
		Name:            m.Name,
		Subject:         m.Subject,
		HTMLContent:     m.HTMLContent,
		ParameterValues: m.ParameterValues,
		Status:          m.Status,
		RecipientCount:  m.RecipientCount,
		SuccessCount:    m.SuccessCount,
		FailCount:       m.FailCount,
		LastError:       m.LastError,
		StartedAt:       m.StartedAt,
		LastProcessedAt: m.LastProcessedAt,
		CompletedAt:     m.CompletedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func recipientModelFromDomain(r *domain.Recipient) *RecipientModel {
	if r == nil {
		return nil
	}

	return &RecipientModel{
		ID:           r.ID,
		CampaignID:   r.CampaignID,
		Email:        r.Email,
		Name:         r.Name,
		Metadata:     r.Metadata,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage,
		SentAt:       r.SentAt,
		CreatedAt:    r.CreatedAt,
	}
}

func recipientModelToDomain(m *RecipientModel) *domain.Recipient {
	if m == nil {
		return nil
	}

	return &domain.Recipient{
		ID:           m.ID,
		CampaignID:   m.CampaignID,
		Email:        m.Email,
		Name:         m.Name,
		Metadata:     m.Metadata,
		Status:       m.Status,
		ErrorMessage: m.ErrorMessage,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
	}
}

func smtpConfigModelToDomain(m *SmtpConfigModel) *domain.SmtpConfig {
	if m == nil {
		return nil
	}

	return &domain.SmtpConfig{
		ID:        m.ID,
		UserID:    m.UserID,
		Host:      m.Host,
		Port:      m.Port,
		Secure:    m.Secure,
		Username:  m.Username,
		Password:  m.Password,
		FromEmail: m.FromEmail,
		FromName:  m.FromName,
		LastUsed:  m.LastUsed,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func emailLogModelFromDomain(l *domain.EmailLog) *EmailLogModel {
	if l == nil {
		return nil
	}

	return &EmailLogModel{
		ID:           l.ID,
		CampaignID:   l.CampaignID,
		RecipientID:  l.RecipientID,
		SmtpConfigID: l.SmtpConfigID,
		Status:       l.Status,
		ErrorMessage: l.ErrorMessage,
		SentAt:       l.SentAt,
	}
}
