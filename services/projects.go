package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProjectService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewProjectService(db *gorm.DB, logger *zap.Logger) *ProjectService {
	return &ProjectService{db: db, logger: logger, now: utcNow}
}

type ProjectFilter struct {
	Status     string
	Pagination utils.Pagination
}

// ProjectStatusStat aggregates projects of one status.
type ProjectStatusStat struct {
	Status  string  `json:"status"`
	Count   int64   `json:"count"`
	Revenue float64 `json:"revenue"`
}

type ProjectList struct {
	Projects []models.Project    `json:"projects"`
	Meta     utils.PageMeta      `json:"meta"`
	Stats    []ProjectStatusStat `json:"stats"`
}

func scopeByRole(db *gorm.DB, userID uuid.UUID, role string) *gorm.DB {
	switch role {
	case models.RoleArtist:
		return db.Where("artist_id = ?", userID)
	case models.RoleClient:
		return db.Where("client_id = ?", userID)
	default:
		return db
	}
}

func (s *ProjectService) List(ctx context.Context, userID uuid.UUID, role string, f ProjectFilter) (*ProjectList, error) {
	p := f.Pagination.Normalize()
	scoped := scopeByRole(s.db.WithContext(ctx).Model(&models.Project{}), userID, role).Session(&gorm.Session{})

	var stats []ProjectStatusStat
	err := scoped.Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue").
		Group("status").
		Scan(&stats).Error
	if err != nil {
		return nil, dbError(err, "project")
	}

	filtered := scoped
	if f.Status != "" {
		filtered = scoped.Where("status = ?", f.Status).Session(&gorm.Session{})
	}
	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return nil, dbError(err, "project")
	}

	var projects []models.Project
	err = filtered.
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_at ASC") }).
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&projects).Error
	if err != nil {
		return nil, dbError(err, "project")
	}
	return &ProjectList{Projects: projects, Meta: p.Meta(total), Stats: stats}, nil
}

func (s *ProjectService) load(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_at ASC") }).
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, dbError(err, "project")
	}
	return &project, nil
}

func (s *ProjectService) Get(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && project.ArtistID != userID && project.ClientID != userID {
		return nil, forbiddenf("not a participant of this project")
	}
	return project, nil
}

func (s *ProjectService) owned(ctx context.Context, artistID, id uuid.UUID) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.ArtistID != artistID {
		return nil, forbiddenf("only the project's artist can change it")
	}
	return project, nil
}

type UpdateProjectInput struct {
	Title       *string
	Description *string
	Style       *string
	BodyZone    *string
	Size        *string
	Status      *string
	DepositPaid *float64
}

func (s *ProjectService) Update(ctx context.Context, artistID, id uuid.UUID, in UpdateProjectInput) (*models.Project, error) {
	project, err := s.owned(ctx, artistID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setText := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	setText("title", in.Title)
	setText("description", in.Description)
	setText("style", in.Style)
	setText("body_zone", in.BodyZone)
	setText("size", in.Size)
	if title, ok := updates["title"]; ok && title == "" {
		return nil, invalidf("title must not be empty")
	}
	if in.DepositPaid != nil {
		if *in.DepositPaid < 0 || *in.DepositPaid > project.TotalAmount {
			return nil, invalidf("deposit paid must be between 0 and the project total")
		}
		updates["deposit_paid"] = utils.Round2(*in.DepositPaid)
	}
	if in.Status != nil && *in.Status != project.Status {
		if !models.ProjectTransitionAllowed(project.Status, *in.Status) {
			return nil, transitionError("project", project.Status, *in.Status)
		}
		updates["status"] = *in.Status
		if *in.Status == models.ProjectCompleted {
			updates["completed_at"] = s.now()
		}
	}
	if len(updates) == 0 {
		return project, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", project.ID)
	_, statusChange := updates["status"]
	if statusChange {
		query = query.Where("status = ?", project.Status)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return nil, dbError(res.Error, "project")
	}
	if statusChange && res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: project status changed concurrently", ErrInvalidTransition)
	}
	return s.load(ctx, project.ID)
}

// Delete soft-deletes the project and takes it out of the client's stats.
func (s *ProjectService) Delete(ctx context.Context, artistID, id uuid.UUID) error {
	project, err := s.owned(ctx, artistID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Project{}, "id = ?", project.ID)
		if res.Error != nil {
			return dbError(res.Error, "project")
		}
		if res.RowsAffected == 0 {
			return notFound("project")
		}
		if project.ClientProfileID == nil {
			return nil
		}
		err := tx.Model(&models.ClientProfile{}).Where("id = ?", *project.ClientProfileID).Updates(map[string]any{
			"total_projects": gorm.Expr("total_projects - ?", 1),
			"total_revenue":  gorm.Expr("total_revenue - ?", project.TotalAmount),
		}).Error
		if err != nil {
			return dbError(err, "client profile")
		}
		return nil
	})
}

type SessionInput struct {
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           string
}

// AddSession plans a session. A pending or design-phase project becomes scheduled.
func (s *ProjectService) AddSession(ctx context.Context, artistID, projectID uuid.UUID, in SessionInput) (*models.ProjectSession, error) {
	project, err := s.owned(ctx, artistID, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsTerminal() {
		return nil, invalidf("cannot schedule a session on a %s project", project.Status)
	}
	if in.ScheduledAt.IsZero() {
		return nil, invalidf("scheduledAt is required")
	}
	duration := in.DurationMinutes
	if duration == 0 {
		duration = 60
	}
	if duration < 15 || duration > 12*60 {
		return nil, invalidf("duration must be between 15 and 720 minutes")
	}

	session := models.ProjectSession{
		ProjectID:       project.ID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: duration,
		Status:          models.SessionPlanned,
		Notes:           in.Notes,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).
			Where("id = ? AND status IN ?", project.ID, []string{models.ProjectPending, models.ProjectDesignPhase}).
			Update("status", models.ProjectScheduled).Error
	})
	if err != nil {
		return nil, dbError(err, "session")
	}
	return &session, nil
}

func (s *ProjectService) UpdateSessionStatus(ctx context.Context, artistID, projectID, sessionID uuid.UUID, status string) (*models.ProjectSession, error) {
	if status != models.SessionPlanned && status != models.SessionDone && status != models.SessionCancelled {
		return nil, invalidf("session status must be planned, done or cancelled")
	}
	if _, err := s.owned(ctx, artistID, projectID); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.ProjectSession{}).
		Where("id = ? AND project_id = ?", sessionID, projectID).
		Update("status", status)
	if res.Error != nil {
		return nil, dbError(res.Error, "session")
	}
	if res.RowsAffected == 0 {
		return nil, notFound("session")
	}
	var session models.ProjectSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, dbError(err, "session")
	}
	return &session, nil
}

func (s *ProjectService) RemoveSession(ctx context.Context, artistID, projectID, sessionID uuid.UUID) error {
	if _, err := s.owned(ctx, artistID, projectID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", sessionID, projectID).Delete(&models.ProjectSession{})
	if res.Error != nil {
		return dbError(res.Error, "session")
	}
	if res.RowsAffected == 0 {
		return notFound("session")
	}
	return nil
}
