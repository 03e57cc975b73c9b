package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

const demoPassword = "password"

type seedUsers interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) error
}

type seedCatalog interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	CreateCourse(ctx context.Context, course *models.Course) error
	CreateSeason(ctx context.Context, season *models.Season) error
	CreateEpisode(ctx context.Context, episode *models.Episode) error
}

type seedPaymentOptions interface {
	Create(ctx context.Context, option *models.PaymentOption) error
}

// SeedService loads demo data into an empty database.
type SeedService struct {
	users    seedUsers
	catalog  seedCatalog
	payments seedPaymentOptions
	logger   *zap.Logger
}

// NewSeedService constructs the demo data loader.
func NewSeedService(users seedUsers, catalog seedCatalog, payments seedPaymentOptions, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{users: users, catalog: catalog, payments: payments, logger: logger}
}

// Seed inserts demo accounts, one course and the payment options. It does
// nothing once any user exists and reports whether data was written.
func (s *SeedService) Seed(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	if count > 0 {
		s.logger.Info("database already populated, skipping seed", zap.Int("users", count))
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := time.Now().UTC()
	for _, user := range []*models.User{
		{ID: uuid.NewString(), Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
		{ID: uuid.NewString(), Name: "User", Email: "user@example.com", Role: models.RoleLearner},
	} {
		user.PasswordHash = string(hash)
		user.CreatedAt, user.UpdatedAt = now, now
		if err := s.users.Create(ctx, user); err != nil {
			return false, seedError(err, "user "+user.Email)
		}
	}

	if err := s.seedCatalog(ctx, now); err != nil {
		return false, err
	}

	for _, option := range []*models.PaymentOption{
		{Provider: models.ProviderTelebirr, AccountName: "Course Market", AccountNumber: "0911000000"},
		{Provider: models.ProviderCBEBirr, AccountName: "Course Market", AccountNumber: "1000123456789"},
		{Provider: models.ProviderHelloCash, AccountName: "Course Market", AccountNumber: "0922000000"},
	} {
		option.ID = uuid.NewString()
		option.IsActive = true
		option.CreatedAt = now
		if err := s.payments.Create(ctx, option); err != nil {
			return false, seedError(err, "payment option "+string(option.Provider))
		}
	}

	s.logger.Info("demo data seeded", zap.String("admin", "admin@example.com"), zap.String("learner", "user@example.com"))
	return true, nil
}

func (s *SeedService) seedCatalog(ctx context.Context, now time.Time) error {
	category := &models.Category{ID: uuid.NewString(), Name: "Web Development", Slug: "web-development"}
	if err := s.catalog.CreateCategory(ctx, category); err != nil {
		return seedError(err, "category")
	}

	thumbnail := "https://images.unsplash.com/photo-1516116216624-53e697fedbea?auto=format&fit=crop&q=80&w=2128"
	course := &models.Course{
		ID:             uuid.NewString(),
		CategoryID:     category.ID,
		Title:          "Fullstack Masterclass",
		Slug:           "fullstack-masterclass",
		Description:    "Learn everything about web development. A comprehensive masterclass.",
		ThumbnailURL:   &thumbnail,
		InstructorName: "John Doe",
		PriceStrategy:  models.PriceStrategyPaid,
		CreatedAt:      now,
	}
	if err := s.catalog.CreateCourse(ctx, course); err != nil {
		return seedError(err, "course")
	}

	season := &models.Season{ID: uuid.NewString(), CourseID: course.ID, Title: "Getting Started", SeasonNumber: 1, Price: "500", CreatedAt: now}
	if err := s.catalog.CreateSeason(ctx, season); err != nil {
		return seedError(err, "season")
	}

	intro := "Welcome to the course"
	setup := "Install Node and VSCode"
	episodes := []*models.Episode{
		{Title: "Introduction", EpisodeNumber: 1, Description: &intro, DurationSec: 300, IsPreview: true, Price: "0", VideoRef: "123456789"},
		{Title: "Setting up your environment", EpisodeNumber: 2, Description: &setup, DurationSec: 600, Price: "150", VideoRef: "123456789"},
	}
	for _, episode := range episodes {
		episode.ID = uuid.NewString()
		episode.SeasonID = season.ID
		episode.VideoProvider = models.DefaultVideoProvider
		episode.CreatedAt = now
		if err := s.catalog.CreateEpisode(ctx, episode); err != nil {
			return seedError(err, "episode "+episode.Title)
		}
	}
	return nil
}

func seedError(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed "+what)
}
