package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientService is the artist-scoped CRM.
type ClientService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewClientService(db *gorm.DB, logger *zap.Logger) *ClientService {
	return &ClientService{db: db, logger: logger, now: utcNow}
}

type ClientFilter struct {
	Status     string
	Search     string
	Pagination utils.Pagination
}

func (s *ClientService) List(ctx context.Context, artistID uuid.UUID, f ClientFilter) ([]models.ClientProfile, int64, error) {
	p := f.Pagination.Normalize()
	query := s.db.WithContext(ctx).Model(&models.ClientProfile{}).Where("artist_id = ?", artistID)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "client")
	}
	var clients []models.ClientProfile
	if err := query.Order("updated_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&clients).Error; err != nil {
		return nil, 0, dbError(err, "client")
	}
	return clients, total, nil
}

type ClientStats struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"byStatus"`
	TotalRevenue   float64          `json:"totalRevenue"`
	AverageRevenue float64          `json:"averageRevenue"`
}

func (s *ClientService) Stats(ctx context.Context, artistID uuid.UUID) (*ClientStats, error) {
	var rows []struct {
		Status  string
		Count   int64
		Revenue float64
	}
	err := s.db.WithContext(ctx).Model(&models.ClientProfile{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_revenue), 0) AS revenue").
		Where("artist_id = ?", artistID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "client")
	}

	stats := &ClientStats{ByStatus: map[string]int64{
		models.ClientProspect: 0,
		models.ClientActive:   0,
		models.ClientInactive: 0,
	}}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
		stats.TotalRevenue += r.Revenue
	}
	stats.TotalRevenue = utils.Round2(stats.TotalRevenue)
	if stats.Total > 0 {
		stats.AverageRevenue = utils.Round2(stats.TotalRevenue / float64(stats.Total))
	}
	return stats, nil
}

// ClientDetail is a profile with the projects linked to it.
type ClientDetail struct {
	models.ClientProfile
	Projects []models.Project `json:"projects"`
}

func (s *ClientService) Get(ctx context.Context, artistID, id uuid.UUID) (*ClientDetail, error) {
	profile, err := s.owned(ctx, artistID, id)
	if err != nil {
		return nil, err
	}
	var projects []models.Project
	if err := s.db.WithContext(ctx).Where("client_profile_id = ?", profile.ID).
		Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, dbError(err, "project")
	}
	return &ClientDetail{ClientProfile: *profile, Projects: projects}, nil
}

func (s *ClientService) owned(ctx context.Context, artistID, id uuid.UUID) (*models.ClientProfile, error) {
	var profile models.ClientProfile
	if err := s.db.WithContext(ctx).Where("artist_id = ? AND id = ?", artistID, id).First(&profile).Error; err != nil {
		return nil, dbError(err, "client")
	}
	return &profile, nil
}

type CreateClientInput struct {
	Name      string
	Email     string
	Phone     string
	Notes     string
	SkinNotes string
	Tags      []string
	Status    string
	Source    string
}

var (
	clientStatuses = []string{models.ClientProspect, models.ClientActive, models.ClientInactive}
	clientSources  = []string{models.SourceManual, models.SourceWalkIn, models.SourceQuote}
)

// Create adds a CRM record. When the email belongs to a client account the
// record is linked to it.
func (s *ClientService) Create(ctx context.Context, artistID uuid.UUID, in CreateClientInput) (*models.ClientProfile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	if in.Phone != "" && !utils.ValidatePhone(in.Phone) {
		return nil, invalidf("invalid phone number format")
	}
	status := in.Status
	if status == "" {
		status = models.ClientProspect
	}
	if !slices.Contains(clientStatuses, status) {
		return nil, invalidf("status must be one of %s", strings.Join(clientStatuses, ", "))
	}
	source := in.Source
	if source == "" {
		source = models.SourceManual
	}
	if !slices.Contains(clientSources, source) {
		return nil, invalidf("source must be one of %s", strings.Join(clientSources, ", "))
	}
	email := utils.NormalizeEmail(in.Email)

	db := s.db.WithContext(ctx)
	if email != "" {
		var count int64
		if err := db.Model(&models.ClientProfile{}).Where("artist_id = ? AND email = ?", artistID, email).
			Count(&count).Error; err != nil {
			return nil, dbError(err, "client")
		}
		if count > 0 {
			return nil, fmt.Errorf("client with this email %w", ErrConflict)
		}
	}

	profile := models.ClientProfile{
		ArtistID:  artistID,
		Name:      name,
		Email:     email,
		Phone:     in.Phone,
		Notes:     in.Notes,
		SkinNotes: in.SkinNotes,
		Tags:      compactStrings(in.Tags),
		Status:    status,
		Source:    source,
	}
	if email != "" {
		var user models.User
		err := db.Where("email = ? AND role = ?", email, models.RoleClient).First(&user).Error
		switch {
		case err == nil:
			profile.ClientID = &user.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, dbError(err, "user")
		}
	}

	if err := db.Create(&profile).Error; err != nil {
		return nil, dbError(err, "client")
	}
	return &profile, nil
}

type UpdateClientInput struct {
	Name      *string
	Email     *string
	Phone     *string
	Notes     *string
	SkinNotes *string
	Tags      []string
	Status    *string
}

func (s *ClientService) Update(ctx context.Context, artistID, id uuid.UUID, in UpdateClientInput) (*models.ClientProfile, error) {
	profile, err := s.owned(ctx, artistID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidf("name must not be empty")
		}
		profile.Name = name
	}
	if in.Email != nil {
		profile.Email = utils.NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		if *in.Phone != "" && !utils.ValidatePhone(*in.Phone) {
			return nil, invalidf("invalid phone number format")
		}
		profile.Phone = *in.Phone
	}
	if in.Notes != nil {
		profile.Notes = *in.Notes
	}
	if in.SkinNotes != nil {
		profile.SkinNotes = *in.SkinNotes
	}
	if in.Tags != nil {
		profile.Tags = compactStrings(in.Tags)
	}
	if in.Status != nil {
		if !slices.Contains(clientStatuses, *in.Status) {
			return nil, invalidf("status must be one of %s", strings.Join(clientStatuses, ", "))
		}
		profile.Status = *in.Status
	}
	now := s.now()
	profile.LastContact = &now

	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, dbError(err, "client")
	}
	return profile, nil
}

func (s *ClientService) Delete(ctx context.Context, artistID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("artist_id = ? AND id = ?", artistID, id).Delete(&models.ClientProfile{})
	if res.Error != nil {
		return dbError(res.Error, "client")
	}
	if res.RowsAffected == 0 {
		return notFound("client")
	}
	return nil
}
