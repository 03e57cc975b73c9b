package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type paymentOptionRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.PaymentOption, error)
	GetByID(ctx context.Context, id string) (*models.PaymentOption, error)
	Create(ctx context.Context, option *models.PaymentOption) error
	Update(ctx context.Context, option *models.PaymentOption) error
	Delete(ctx context.Context, id string) error
}

// PaymentOptionService manages the accounts learners pay into.
type PaymentOptionService struct {
	repo      paymentOptionRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentOptionService constructs the service.
func NewPaymentOptionService(repo paymentOptionRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *PaymentOptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentOptionService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns payment options. Learners only see active ones.
func (s *PaymentOptionService) List(ctx context.Context, activeOnly bool) ([]models.PaymentOption, error) {
	options, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payment options")
	}
	if options == nil {
		options = []models.PaymentOption{}
	}
	return options, nil
}

// Create adds a payment option. New options are active unless stated otherwise.
func (s *PaymentOptionService) Create(ctx context.Context, req dto.PaymentOptionRequest, actorID string) (*models.PaymentOption, error) {
	option := &models.PaymentOption{IsActive: true}
	if err := s.apply(option, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, option); err != nil {
		return nil, mapWriteError(err, "payment option", "failed to create payment option")
	}
	s.record(ctx, actorID, option)
	return option, nil
}

// Update overwrites a payment option.
func (s *PaymentOptionService) Update(ctx context.Context, id string, req dto.PaymentOptionRequest, actorID string) (*models.PaymentOption, error) {
	option, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "payment option not found", "failed to load payment option")
	}
	if err := s.apply(option, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, option); err != nil {
		return nil, mapWriteError(err, "payment option", "failed to update payment option")
	}
	s.record(ctx, actorID, option)
	return option, nil
}

// Delete removes a payment option.
func (s *PaymentOptionService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapWriteError(err, "payment option", "failed to delete payment option")
	}
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionCatalogChange,
		Resource:   "payment_options",
		ResourceID: &id,
	})
	return nil
}

func (s *PaymentOptionService) apply(option *models.PaymentOption, req dto.PaymentOptionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment option payload")
	}
	provider := models.PaymentProvider(strings.ToUpper(strings.TrimSpace(req.Provider)))
	if !provider.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported payment provider")
	}
	option.Provider = provider
	option.AccountName = strings.TrimSpace(req.AccountName)
	option.AccountNumber = strings.TrimSpace(req.AccountNumber)
	option.MerchantID = req.MerchantID
	option.QRCodeURL = req.QRCodeURL
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}
	return nil
}

func (s *PaymentOptionService) record(ctx context.Context, actorID string, option *models.PaymentOption) {
	payload, _ := json.Marshal(option)
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionCatalogChange,
		Resource:   "payment_options",
		ResourceID: &option.ID,
		NewValues:  payload,
	})
}
