package remotetest

import (
	"time"

	"grant-dashboard/models"
)

// grantRow is the service-side grant table.
type grantRow struct {
	ID                  string `gorm:"primaryKey"`
	Source              string `gorm:"index"`
	Title               string
	Department          *string
	PublicationDate     *time.Time
	ApplicationEndDate  *time.Time `gorm:"index"`
	CapturedAt          *time.Time
	BudgetAmount        *float64
	IsNonprofit         bool
	IsOpen              bool
	SentToN8n           bool
	BdnsCode            *string
	NonprofitConfidence *float64
	Purpose             *string
}

func (grantRow) TableName() string { return "grants" }

type favoriteRow struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex:idx_user_grant"`
	GrantID   string `gorm:"uniqueIndex:idx_user_grant"`
	CreatedAt time.Time
}

func (favoriteRow) TableName() string { return "user_favorites" }

type alertRow struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	UserID          string `gorm:"index"`
	Name            string
	Email           string
	Keywords        *string
	Source          *string
	MinBudget       *float64
	MaxBudget       *float64
	IsNonprofit     *bool
	Regions         []string `gorm:"serializer:json"`
	Sectors         []string `gorm:"serializer:json"`
	IsActive        bool
	LastTriggeredAt *time.Time
	MatchesCount    int
	CreatedAt       time.Time
}

func (alertRow) TableName() string { return "user_alerts" }

func toTime(d *models.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.UTC()
	return &t
}

func toDate(t *time.Time) *models.Date {
	if t == nil {
		return nil
	}
	return models.NewDate(t.UTC())
}

func grantFromModel(g models.Grant) grantRow {
	return grantRow{
		ID:                  g.ID,
		Source:              g.Source,
		Title:               g.Title,
		Department:          g.Department,
		PublicationDate:     toTime(g.PublicationDate),
		ApplicationEndDate:  toTime(g.ApplicationEndDate),
		CapturedAt:          toTime(g.CapturedAt),
		BudgetAmount:        g.BudgetAmount,
		IsNonprofit:         g.IsNonprofit,
		IsOpen:              g.IsOpen,
		SentToN8n:           g.SentToN8n,
		BdnsCode:            g.BdnsCode,
		NonprofitConfidence: g.NonprofitConfidence,
		Purpose:             g.Purpose,
	}
}

func (r grantRow) model() models.Grant {
	return models.Grant{
		ID:                  r.ID,
		Source:              r.Source,
		Title:               r.Title,
		Department:          r.Department,
		PublicationDate:     toDate(r.PublicationDate),
		ApplicationEndDate:  toDate(r.ApplicationEndDate),
		CapturedAt:          toDate(r.CapturedAt),
		BudgetAmount:        r.BudgetAmount,
		IsNonprofit:         r.IsNonprofit,
		IsOpen:              r.IsOpen,
		SentToN8n:           r.SentToN8n,
		BdnsCode:            r.BdnsCode,
		NonprofitConfidence: r.NonprofitConfidence,
		Purpose:             r.Purpose,
	}
}

func (r alertRow) model() models.Alert {
	return models.Alert{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		Active:          r.IsActive,
		MatchCount:      r.MatchesCount,
		LastTriggeredAt: toDate(r.LastTriggeredAt),
		AlertCriteria: models.AlertCriteria{
			Keywords:    r.Keywords,
			Source:      r.Source,
			MinBudget:   r.MinBudget,
			MaxBudget:   r.MaxBudget,
			IsNonprofit: r.IsNonprofit,
			Regions:     r.Regions,
			Sectors:     r.Sectors,
		},
	}
}
