package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxGalleryItems = 60

type PageService struct {
	db     *gorm.DB
	users  *UserService
	logger *zap.Logger
}

func NewPageService(db *gorm.DB, users *UserService, logger *zap.Logger) *PageService {
	return &PageService{db: db, users: users, logger: logger}
}

// ArtistPage is the public view served at /api/pages/:slug.
type ArtistPage struct {
	Artist models.PublicUser  `json:"artist"`
	Page   *models.PublicPage `json:"page"`
}

// GetBySlug resolves an artist slug to the artist's public fields and page.
// Unpublished pages are only returned to their owner.
func (s *PageService) GetBySlug(ctx context.Context, slug string, viewer uuid.UUID) (*ArtistPage, error) {
	artist, err := s.users.ResolveArtist(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.find(ctx, artist.ID)
	if err != nil {
		return nil, err
	}
	if page != nil && !page.Published && viewer != artist.ID {
		page = nil
	}
	return &ArtistPage{Artist: artist.Public(), Page: page}, nil
}

func (s *PageService) find(ctx context.Context, artistID uuid.UUID) (*models.PublicPage, error) {
	var page models.PublicPage
	err := s.db.WithContext(ctx).Where("artist_id = ?", artistID).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "page")
	}
	return &page, nil
}

// Mine returns the artist's page, creating an empty draft on first access.
func (s *PageService) Mine(ctx context.Context, artistID uuid.UUID) (*models.PublicPage, error) {
	page := models.PublicPage{
		ArtistID:    artistID,
		Styles:      []string{},
		Gallery:     []string{},
		BookingOpen: true,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "artist_id"}}, DoNothing: true}).
		Create(&page).Error
	if err != nil {
		return nil, dbError(err, "page")
	}
	found, err := s.find(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, notFound("page")
	}
	return found, nil
}

type UpdatePageInput struct {
	Headline    *string
	About       *string
	Location    *string
	Styles      []string
	BookingOpen *bool
	Published   *bool
}

func (s *PageService) Update(ctx context.Context, artistID uuid.UUID, in UpdatePageInput) (*models.PublicPage, error) {
	page, err := s.Mine(ctx, artistID)
	if err != nil {
		return nil, err
	}

	if in.Headline != nil {
		page.Headline = strings.TrimSpace(*in.Headline)
	}
	if in.About != nil {
		page.About = *in.About
	}
	if in.Location != nil {
		page.Location = strings.TrimSpace(*in.Location)
	}
	if in.Styles != nil {
		page.Styles = compactStrings(in.Styles)
	}
	if in.BookingOpen != nil {
		page.BookingOpen = *in.BookingOpen
	}
	if in.Published != nil {
		page.Published = *in.Published
	}

	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, dbError(err, "page")
	}
	return page, nil
}

// SetHeader stores the header image url and returns the previous one.
func (s *PageService) SetHeader(ctx context.Context, artistID uuid.UUID, url string) (*models.PublicPage, string, error) {
	page, err := s.Mine(ctx, artistID)
	if err != nil {
		return nil, "", err
	}
	previous := page.HeaderImage
	if err := s.db.WithContext(ctx).Model(page).Update("header_image", url).Error; err != nil {
		return nil, "", dbError(err, "page")
	}
	page.HeaderImage = url
	return page, previous, nil
}

func (s *PageService) AddGalleryItems(ctx context.Context, artistID uuid.UUID, urls []string) (*models.PublicPage, error) {
	page, err := s.Mine(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if len(page.Gallery)+len(urls) > maxGalleryItems {
		return nil, invalidf("gallery is limited to %d images", maxGalleryItems)
	}
	page.Gallery = append(page.Gallery, urls...)
	if err := s.db.WithContext(ctx).Model(page).Update("gallery", page.Gallery).Error; err != nil {
		return nil, dbError(err, "page")
	}
	return page, nil
}

func (s *PageService) RemoveGalleryItem(ctx context.Context, artistID uuid.UUID, url string) (*models.PublicPage, error) {
	page, err := s.Mine(ctx, artistID)
	if err != nil {
		return nil, err
	}
	idx := slices.Index(page.Gallery, url)
	if idx < 0 {
		return nil, notFound("gallery item")
	}
	page.Gallery = slices.Delete(page.Gallery, idx, idx+1)
	if err := s.db.WithContext(ctx).Model(page).Update("gallery", page.Gallery).Error; err != nil {
		return nil, dbError(err, "page")
	}
	return page, nil
}

// ListArtists returns active artists that have a published page.
func (s *PageService) ListArtists(ctx context.Context, p utils.Pagination) ([]ArtistPage, int64, error) {
	p = p.Normalize()
	base := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN public_pages ON public_pages.artist_id = users.id").
		Where("users.role = ? AND users.is_active = ? AND public_pages.published = ?", models.RoleArtist, true, true).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "artist")
	}

	var artists []models.User
	if err := base.Order("users.name ASC").Offset(p.Offset()).Limit(p.Limit).Find(&artists).Error; err != nil {
		return nil, 0, dbError(err, "artist")
	}

	ids := make([]uuid.UUID, len(artists))
	for i, a := range artists {
		ids[i] = a.ID
	}
	var pages []models.PublicPage
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("artist_id IN ?", ids).Find(&pages).Error; err != nil {
			return nil, 0, dbError(err, "page")
		}
	}
	byArtist := make(map[uuid.UUID]*models.PublicPage, len(pages))
	for i := range pages {
		byArtist[pages[i].ArtistID] = &pages[i]
	}

	out := make([]ArtistPage, len(artists))
	for i := range artists {
		out[i] = ArtistPage{Artist: artists[i].Public(), Page: byArtist[artists[i].ID]}
	}
	return out, total, nil
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
