package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{db: db, logger: logger, now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	Phone     string
	Role      string
	Specialty string
	Instagram string
}

// Register creates an account. Registering with the email of a placeholder
// account claims it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := utils.NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = models.RoleClient
	}
	if role != models.RoleClient && role != models.RoleArtist {
		return nil, invalidf("role must be %s or %s", models.RoleClient, models.RoleArtist)
	}
	if in.Phone != "" && !utils.ValidatePhone(in.Phone) {
		return nil, invalidf("invalid phone number format")
	}

	db := s.db.WithContext(ctx)
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		if !existing.IsPlaceholder {
			return nil, fmt.Errorf("email %w", ErrConflict)
		}
		return s.claimPlaceholder(ctx, &existing, in)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, dbError(err, "user")
	}

	user := models.User{
		Email:     email,
		Password:  in.Password,
		Name:      strings.TrimSpace(in.Name),
		Phone:     in.Phone,
		Role:      role,
		Specialty: in.Specialty,
		Instagram: in.Instagram,
		IsActive:  true,
	}
	if role == models.RoleArtist {
		slug, err := s.uniqueSlug(ctx, user.Name)
		if err != nil {
			return nil, err
		}
		user.Slug = &slug
	}

	if err := db.Create(&user).Error; err != nil {
		return nil, dbError(err, "user")
	}
	s.logger.Info("user registered", zap.String("userId", user.ID.String()), zap.String("role", role))
	return &user, nil
}

// claimPlaceholder sets credentials on a placeholder account. The account keeps
// its client role so quotes already addressed to it stay reachable.
func (s *UserService) claimPlaceholder(ctx context.Context, user *models.User, in RegisterInput) (*models.User, error) {
	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	updates := map[string]any{
		"password":       hashed,
		"name":           strings.TrimSpace(in.Name),
		"phone":          in.Phone,
		"is_placeholder": false,
	}
	if in.Role != "" && in.Role != user.Role {
		s.logger.Info("placeholder claim keeps existing role",
			zap.String("userId", user.ID.String()), zap.String("role", user.Role), zap.String("requested", in.Role))
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, dbError(err, "user")
	}
	s.logger.Info("placeholder account claimed", zap.String("userId", user.ID.String()))
	return s.Get(ctx, user.ID)
}

// uniqueSlug derives a slug from name, suffixing -2, -3... until it is free.
func (s *UserService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	if len(base) < 3 {
		base = strings.Trim("artist-"+base, "-")
	}
	for i := 1; i <= 100; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		var count int64
		if err := s.db.WithContext(ctx).Unscoped().Model(&models.User{}).
			Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", dbError(err, "user")
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return base + "-" + uuid.NewString()[:8], nil
}

// Authenticate checks credentials and stamps the login time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, dbError(err, "user")
	}
	if user.IsPlaceholder || !user.IsActive || !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrUnauthorized
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.logger.Warn("failed to record login", zap.String("userId", user.ID.String()), zap.Error(err))
	}
	user.LastLogin = &now
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "user")
	}
	return &user, nil
}

// GetMany loads users by id, keyed by id.
func (s *UserService) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, dbError(err, "user")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

type UpdateProfileInput struct {
	Name      *string
	Phone     *string
	Bio       *string
	Specialty *string
	Instagram *string
	Slug      *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidf("name must not be empty")
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		if *in.Phone != "" && !utils.ValidatePhone(*in.Phone) {
			return nil, invalidf("invalid phone number format")
		}
		updates["phone"] = *in.Phone
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if in.Specialty != nil {
		updates["specialty"] = *in.Specialty
	}
	if in.Instagram != nil {
		updates["instagram"] = strings.TrimPrefix(*in.Instagram, "@")
	}
	if in.Slug != nil {
		if !user.IsArtist() {
			return nil, forbiddenf("only artists have a public slug")
		}
		slug := strings.ToLower(strings.TrimSpace(*in.Slug))
		if !utils.ValidSlug(slug) {
			return nil, invalidf("slug must be 3-60 lowercase letters, digits or dashes")
		}
		updates["slug"] = slug
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("slug %w", ErrConflict)
		}
		return nil, dbError(err, "user")
	}
	return s.Get(ctx, id)
}

func (s *UserService) SetProfilePhoto(ctx context.Context, id uuid.UUID, url string) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("profile_photo", url)
	if res.Error != nil {
		return nil, dbError(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, notFound("user")
	}
	return s.Get(ctx, id)
}

// ClientRef names a quote recipient by id or by email.
type ClientRef struct {
	ID    *uuid.UUID
	Email string
	Name  string
	Phone string
}

// ResolveClient finds the referenced client. An unknown email creates a
// placeholder client account.
func (s *UserService) ResolveClient(ctx context.Context, ref ClientRef) (*models.User, error) {
	if ref.ID != nil {
		user, err := s.Get(ctx, *ref.ID)
		if err != nil {
			return nil, err
		}
		if !user.IsClient() {
			return nil, invalidf("referenced user is not a client")
		}
		return user, nil
	}

	email := utils.NormalizeEmail(ref.Email)
	if email == "" {
		return nil, invalidf("a client id or email is required")
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	placeholder := models.User{
		Email:         email,
		Name:          name,
		Phone:         ref.Phone,
		Role:          models.RoleClient,
		IsPlaceholder: true,
		IsActive:      true,
	}
	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&placeholder)
	if res.Error != nil {
		return nil, dbError(res.Error, "user")
	}
	if res.RowsAffected == 1 {
		s.logger.Info("placeholder client created", zap.String("userId", placeholder.ID.String()))
		return &placeholder, nil
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, dbError(err, "user")
	}
	if !user.IsClient() {
		return nil, invalidf("referenced user is not a client")
	}
	return &user, nil
}

// ResolveArtist finds an active artist by id or slug.
func (s *UserService) ResolveArtist(ctx context.Context, ref string) (*models.User, error) {
	var user models.User
	db := s.db.WithContext(ctx)
	var err error
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		err = db.First(&user, "id = ?", id).Error
	} else {
		err = db.Where("slug = ?", strings.ToLower(strings.TrimSpace(ref))).First(&user).Error
	}
	if err != nil {
		return nil, dbError(err, "artist")
	}
	if !user.IsArtist() || !user.IsActive {
		return nil, notFound("artist")
	}
	return &user, nil
}
