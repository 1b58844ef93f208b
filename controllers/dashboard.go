package controllers

import (
	"net/http"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DashboardOverview struct {
	ActiveProjects   int64             `json:"activeProjects"`
	PendingQuotes    int64             `json:"pendingQuotes"`
	DraftQuotes      int64             `json:"draftQuotes"`
	MonthlyRevenue   float64           `json:"monthlyRevenue"`
	UnreadMessages   int64             `json:"unreadMessages"`
	UpcomingEvents   []UpcomingEvent   `json:"upcomingEvents"`
	UpcomingSessions []UpcomingSession `json:"upcomingSessions"`
	RecentClients    []RecentClient    `json:"recentClients"`
}

type UpcomingEvent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Date  string    `json:"date"` // e.g. "Tomorrow", "3 days"
}

type UpcomingSession struct {
	ProjectID    uuid.UUID `json:"projectId"`
	ProjectTitle string    `json:"projectTitle"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Date         string    `json:"date"`
}

type RecentClient struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	LastContact string    `json:"lastContact"` // e.g. "Today", "Yesterday"
}

var activeProjectStatuses = []string{
	models.ProjectPending,
	models.ProjectDesignPhase,
	models.ProjectScheduled,
	models.ProjectInProgress,
}

// DashboardController builds the artist home screen.
type DashboardController struct {
	db     *gorm.DB
	chat   *services.ChatService
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboardController(db *gorm.DB, chat *services.ChatService, logger *zap.Logger) *DashboardController {
	return &DashboardController{db: db, chat: chat, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (dc *DashboardController) GetDashboardOverview(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	db := dc.db.WithContext(ctx)
	now := dc.now()
	var out DashboardOverview

	if err := db.Model(&models.Project{}).
		Where("artist_id = ? AND status IN ?", artistID, activeProjectStatuses).
		Count(&out.ActiveProjects).Error; err != nil {
		dc.fail(c, "active projects", err)
		return
	}

	if err := db.Model(&models.Quote{}).
		Where("artist_id = ? AND status = ?", artistID, models.QuoteSent).
		Count(&out.PendingQuotes).Error; err != nil {
		dc.fail(c, "pending quotes", err)
		return
	}
	if err := db.Model(&models.Quote{}).
		Where("artist_id = ? AND status = ?", artistID, models.QuoteDraft).
		Count(&out.DraftQuotes).Error; err != nil {
		dc.fail(c, "draft quotes", err)
		return
	}

	// This month's accepted revenue
	if err := db.Model(&models.Quote{}).
		Where("artist_id = ? AND status = ? AND accepted_at >= ?", artistID, models.QuoteAccepted, utils.BeginningOfMonth(now)).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&out.MonthlyRevenue).Error; err != nil {
		dc.fail(c, "monthly revenue", err)
		return
	}

	unread, err := dc.chat.UnreadCount(ctx, artistID)
	if err != nil {
		dc.fail(c, "unread messages", err)
		return
	}
	out.UnreadMessages = unread

	// Events of the next 7 days
	var events []models.Event
	if err := db.Where("user_id = ? AND starts_at >= ? AND starts_at < ?", artistID, now, now.AddDate(0, 0, 7)).
		Order("starts_at ASC").Limit(5).Find(&events).Error; err != nil {
		dc.fail(c, "upcoming events", err)
		return
	}
	out.UpcomingEvents = make([]UpcomingEvent, 0, len(events))
	for _, e := range events {
		out.UpcomingEvents = append(out.UpcomingEvents, UpcomingEvent{ID: e.ID, Title: e.Title, Date: utils.UpcomingDay(e.StartsAt, now)})
	}

	var sessions []UpcomingSession
	if err := db.Table("project_sessions").
		Select("projects.id AS project_id, projects.title AS project_title, project_sessions.scheduled_at").
		Joins("JOIN projects ON projects.id = project_sessions.project_id").
		Where("projects.artist_id = ? AND projects.deleted_at IS NULL AND project_sessions.status = ? AND project_sessions.scheduled_at >= ?",
			artistID, models.SessionPlanned, now).
		Order("project_sessions.scheduled_at ASC").
		Limit(5).
		Scan(&sessions).Error; err != nil {
		dc.fail(c, "upcoming sessions", err)
		return
	}
	for i := range sessions {
		sessions[i].Date = utils.UpcomingDay(sessions[i].ScheduledAt, now)
	}
	out.UpcomingSessions = sessions
	if out.UpcomingSessions == nil {
		out.UpcomingSessions = []UpcomingSession{}
	}

	// Last 3 clients in contact
	var profiles []models.ClientProfile
	if err := db.Where("artist_id = ? AND last_contact IS NOT NULL", artistID).
		Order("last_contact DESC").Limit(3).Find(&profiles).Error; err != nil {
		dc.fail(c, "recent clients", err)
		return
	}
	out.RecentClients = make([]RecentClient, 0, len(profiles))
	for _, p := range profiles {
		out.RecentClients = append(out.RecentClients, RecentClient{ID: p.ID, Name: p.Name, LastContact: utils.RelativeDay(*p.LastContact, now)})
	}

	c.JSON(http.StatusOK, out)
}

func (dc *DashboardController) fail(c *gin.Context, what string, err error) {
	dc.logger.Error("dashboard query failed", zap.String("section", what), zap.Error(err))
	utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get "+what)
}
