// controllers/report.go
package controllers

import (
	"net/http"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReportController handles all reporting functions
type ReportController struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewReportController(db *gorm.DB, logger *zap.Logger) *ReportController {
	return &ReportController{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// AnalyticsSummary represents the Analytics data
type AnalyticsSummary struct {
	CurrentMonthRevenue   float64         `json:"currentMonthRevenue"`
	MonthGrowth           float64         `json:"monthGrowth"`
	CurrentQuarterRevenue float64         `json:"currentQuarterRevenue"`
	QuarterGrowth         float64         `json:"quarterGrowth"`
	CurrentYearRevenue    float64         `json:"currentYearRevenue"`
	YearGrowth            float64         `json:"yearGrowth"`
	ConversionRate        float64         `json:"conversionRate"`
	TopClients            []ClientSummary `json:"topClients"`
	QuickStats            QuickStatistics `json:"quickStats"`
}

type ClientSummary struct {
	Name     string  `json:"name"`
	Projects int     `json:"projects"`
	Spent    float64 `json:"spent"`
}

type QuickStatistics struct {
	TotalClients      int     `json:"totalClients"`
	TotalProjects     int     `json:"totalProjects"`
	CompletedProjects int     `json:"completedProjects"`
	AvgProjectValue   float64 `json:"avgProjectValue"`
}

// GetReportAnalytics returns revenue by period with growth against the
// previous period, the quote conversion rate and the best clients.
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	db := rc.db.WithContext(c.Request.Context())
	now := rc.now()

	month := utils.BeginningOfMonth(now)
	quarter := utils.BeginningOfQuarter(now)
	year := utils.BeginningOfYear(now)

	periods := []struct {
		start, end, prevStart time.Time
		current, growth       *float64
	}{
		{start: month, end: month.AddDate(0, 1, 0), prevStart: month.AddDate(0, -1, 0)},
		{start: quarter, end: quarter.AddDate(0, 3, 0), prevStart: quarter.AddDate(0, -3, 0)},
		{start: year, end: year.AddDate(1, 0, 0), prevStart: year.AddDate(-1, 0, 0)},
	}
	var summary AnalyticsSummary
	periods[0].current, periods[0].growth = &summary.CurrentMonthRevenue, &summary.MonthGrowth
	periods[1].current, periods[1].growth = &summary.CurrentQuarterRevenue, &summary.QuarterGrowth
	periods[2].current, periods[2].growth = &summary.CurrentYearRevenue, &summary.YearGrowth

	for _, p := range periods {
		current, err := rc.getRevenue(db, artistID, p.start, p.end)
		if err != nil {
			rc.fail(c, "revenue", err)
			return
		}
		previous, err := rc.getRevenue(db, artistID, p.prevStart, p.start)
		if err != nil {
			rc.fail(c, "previous revenue", err)
			return
		}
		*p.current = current
		*p.growth = rc.calculateGrowthPercentage(current, previous)
	}

	rate, err := rc.getConversionRate(db, artistID)
	if err != nil {
		rc.fail(c, "conversion rate", err)
		return
	}
	summary.ConversionRate = rate

	if summary.TopClients, err = rc.getTopClients(db, artistID, 5); err != nil {
		rc.fail(c, "top clients", err)
		return
	}

	if summary.QuickStats, err = rc.getQuickStatistics(db, artistID); err != nil {
		rc.fail(c, "quick statistics", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Helper functions for reports

// getRevenue sums accepted quotes whose acceptance falls in [start, end).
func (rc *ReportController) getRevenue(db *gorm.DB, artistID uuid.UUID, start, end time.Time) (float64, error) {
	var total float64
	err := db.Model(&models.Quote{}).
		Where("artist_id = ? AND status = ? AND accepted_at >= ? AND accepted_at < ?", artistID, models.QuoteAccepted, start, end).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (rc *ReportController) calculateGrowthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return utils.Round2((current - previous) / previous * 100)
}

// getConversionRate is the share of sent quotes that ended accepted.
func (rc *ReportController) getConversionRate(db *gorm.DB, artistID uuid.UUID) (float64, error) {
	var sent, accepted int64
	if err := db.Model(&models.Quote{}).
		Where("artist_id = ? AND sent_at IS NOT NULL", artistID).
		Count(&sent).Error; err != nil {
		return 0, err
	}
	if sent == 0 {
		return 0, nil
	}
	if err := db.Model(&models.Quote{}).
		Where("artist_id = ? AND status = ?", artistID, models.QuoteAccepted).
		Count(&accepted).Error; err != nil {
		return 0, err
	}
	return utils.Round2(float64(accepted) / float64(sent) * 100), nil
}

func (rc *ReportController) getTopClients(db *gorm.DB, artistID uuid.UUID, limit int) ([]ClientSummary, error) {
	clients := []ClientSummary{}
	err := db.Model(&models.ClientProfile{}).
		Select("name, total_projects AS projects, total_revenue AS spent").
		Where("artist_id = ? AND total_revenue > 0", artistID).
		Order("total_revenue DESC").
		Limit(limit).
		Scan(&clients).Error
	return clients, err
}

func (rc *ReportController) getQuickStatistics(db *gorm.DB, artistID uuid.UUID) (QuickStatistics, error) {
	var stats QuickStatistics

	var totalClients int64
	if err := db.Model(&models.ClientProfile{}).
		Where("artist_id = ?", artistID).
		Count(&totalClients).Error; err != nil {
		return stats, err
	}
	stats.TotalClients = int(totalClients)

	var totalProjects int64
	if err := db.Model(&models.Project{}).
		Where("artist_id = ? AND status <> ?", artistID, models.ProjectCancelled).
		Count(&totalProjects).Error; err != nil {
		return stats, err
	}
	stats.TotalProjects = int(totalProjects)

	var completed int64
	if err := db.Model(&models.Project{}).
		Where("artist_id = ? AND status = ?", artistID, models.ProjectCompleted).
		Count(&completed).Error; err != nil {
		return stats, err
	}
	stats.CompletedProjects = int(completed)

	var totalValue float64
	if err := db.Model(&models.Project{}).
		Where("artist_id = ? AND status <> ?", artistID, models.ProjectCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalValue).Error; err != nil {
		return stats, err
	}
	if stats.TotalProjects > 0 {
		stats.AvgProjectValue = utils.Round2(totalValue / float64(stats.TotalProjects))
	}

	return stats, nil
}

func (rc *ReportController) fail(c *gin.Context, what string, err error) {
	rc.logger.Error("report query failed", zap.String("section", what), zap.Error(err))
	utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get "+what)
}
