package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/repository"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

type purchaseStore interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	GetByID(ctx context.Context, id string) (*models.Purchase, error)
	List(ctx context.Context, filter models.PurchaseFilter) ([]models.PurchaseWithBuyer, int, error)
	ListByUser(ctx context.Context, userID string) ([]models.Purchase, error)
	HasPending(ctx context.Context, userID string, ref models.ContentRef) (bool, error)
	Settle(ctx context.Context, params models.SettlePurchaseParams) (*models.Purchase, error)
}

type grantStore interface {
	Create(ctx context.Context, grant *models.AccessGrant) error
	GetByID(ctx context.Context, id string) (*models.AccessGrant, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]models.AccessGrant, error)
}

type purchaseCatalog interface {
	GetSeason(ctx context.Context, id string) (*models.Season, error)
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
}

type purchaseMetrics interface {
	RecordPurchaseInitiated(itemType models.ItemType)
	RecordPurchaseReview(outcome string)
}

// PurchaseConfig tunes purchase initiation.
type PurchaseConfig struct {
	DefaultCurrency        string
	DefaultProvider        models.PaymentProvider
	RejectDuplicatePending bool
}

// PurchaseService drives the purchase approval workflow.
type PurchaseService struct {
	purchases purchaseStore
	grants    grantStore
	catalog   purchaseCatalog
	metrics   purchaseMetrics
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    PurchaseConfig
}

// NewPurchaseService constructs the workflow.
func NewPurchaseService(purchases purchaseStore, grants grantStore, catalog purchaseCatalog, metrics purchaseMetrics, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cfg PurchaseConfig) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "ETB"
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = models.ProviderTelebirr
	}
	return &PurchaseService{
		purchases: purchases,
		grants:    grants,
		catalog:   catalog,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    cfg,
	}
}

// InitiatePurchase records a PENDING purchase. No access is granted here.
func (s *PurchaseService) InitiatePurchase(ctx context.Context, userID string, req dto.InitiatePurchaseRequest) (*models.Purchase, error) {
	if strings.TrimSpace(req.TransactionRef) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "transactionRef is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purchase payload")
	}
	ref, err := models.ParseContentRef(req.ItemType, req.ItemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "itemType must be SEASON or EPISODE")
	}
	amount := strings.TrimSpace(req.Amount)
	if _, err := models.ParsePrice(amount); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "amount must be a non-negative decimal")
	}
	provider := s.config.DefaultProvider
	if req.Provider != "" {
		provider = models.PaymentProvider(strings.ToUpper(strings.TrimSpace(req.Provider)))
	}
	if !provider.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment provider")
	}
	currency := s.config.DefaultCurrency
	if req.Currency != "" {
		currency = strings.ToUpper(req.Currency)
	}

	if err := s.ensureItemExists(ctx, ref); err != nil {
		return nil, err
	}

	if s.config.RejectDuplicatePending {
		pending, err := s.purchases.HasPending(ctx, userID, ref)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending purchases")
		}
		if pending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a purchase for this item is already pending approval")
		}
	}

	purchase := &models.Purchase{
		UserID:          userID,
		ItemType:        ref.Type(),
		ItemID:          ref.ID(),
		Amount:          amount,
		Currency:        currency,
		Provider:        provider,
		TransactionRef:  strings.TrimSpace(req.TransactionRef),
		PaymentProofURL: req.PaymentProofURL,
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create purchase")
	}

	if s.metrics != nil {
		s.metrics.RecordPurchaseInitiated(ref.Type())
	}
	payload, _ := json.Marshal(purchase)
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionPurchaseCreate,
		Resource:   "purchases",
		ResourceID: &purchase.ID,
		NewValues:  payload,
	})
	s.logger.Info("purchase initiated",
		zap.String("purchase_id", purchase.ID),
		zap.String("user_id", userID),
		zap.String("item", ref.String()),
	)
	return purchase, nil
}

// ApprovePurchase marks a PENDING purchase PAID and grants access atomically.
func (s *PurchaseService) ApprovePurchase(ctx context.Context, purchaseID, adminID string) (*models.Purchase, error) {
	return s.settle(ctx, models.SettlePurchaseParams{
		PurchaseID: purchaseID,
		To:         models.PurchaseStatusPaid,
		ReviewerID: adminID,
		Grant:      &models.AccessGrant{GrantedBy: models.GrantedByAdmin},
	}, models.AuditActionPurchaseApprove)
}

// RejectPurchase marks a PENDING purchase FAILED.
func (s *PurchaseService) RejectPurchase(ctx context.Context, purchaseID, adminID, note string) (*models.Purchase, error) {
	return s.settle(ctx, models.SettlePurchaseParams{
		PurchaseID: purchaseID,
		To:         models.PurchaseStatusFailed,
		ReviewerID: adminID,
		Note:       optionalNote(note),
	}, models.AuditActionPurchaseReject)
}

// RefundPurchase marks a PENDING purchase REFUNDED.
func (s *PurchaseService) RefundPurchase(ctx context.Context, purchaseID, adminID, note string) (*models.Purchase, error) {
	return s.settle(ctx, models.SettlePurchaseParams{
		PurchaseID: purchaseID,
		To:         models.PurchaseStatusRefunded,
		ReviewerID: adminID,
		Note:       optionalNote(note),
	}, models.AuditActionPurchaseRefund)
}

func (s *PurchaseService) settle(ctx context.Context, params models.SettlePurchaseParams, action string) (*models.Purchase, error) {
	if params.Note != nil {
		if err := s.validator.Struct(dto.ReviewPurchaseRequest{Note: *params.Note}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "review note is too long")
		}
	}
	purchase, err := s.purchases.Settle(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "purchase not found")
		case errors.Is(err, repository.ErrPurchaseSettled):
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "")
		default:
			s.logger.Error("failed to settle purchase", zap.String("purchase_id", params.PurchaseID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update purchase")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordPurchaseReview(strings.ToLower(string(params.To)))
	}
	oldPayload, _ := json.Marshal(map[string]interface{}{"status": models.PurchaseStatusPending})
	newPayload, _ := json.Marshal(map[string]interface{}{"status": purchase.Status, "note": purchase.ReviewNote})
	reviewer := params.ReviewerID
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &reviewer,
		Action:     action,
		Resource:   "purchases",
		ResourceID: &purchase.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
	})
	s.logger.Info("purchase reviewed",
		zap.String("purchase_id", purchase.ID),
		zap.String("status", string(purchase.Status)),
		zap.String("admin_id", reviewer),
	)
	return purchase, nil
}

// GetPurchase returns a single ledger row.
func (s *PurchaseService) GetPurchase(ctx context.Context, id string) (*models.Purchase, error) {
	purchase, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "purchase not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchase")
	}
	return purchase, nil
}

// ListPurchases returns the admin review queue with buyer identity.
func (s *PurchaseService) ListPurchases(ctx context.Context, query dto.PurchaseQuery) ([]models.PurchaseWithBuyer, *models.Pagination, error) {
	for _, status := range query.Statuses {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown purchase status "+string(status))
		}
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	rows, total, err := s.purchases.List(ctx, models.PurchaseFilter{Statuses: query.Statuses, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purchases")
	}
	if rows == nil {
		rows = []models.PurchaseWithBuyer{}
	}
	return rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListMyPurchases returns a learner's own purchase history.
func (s *PurchaseService) ListMyPurchases(ctx context.Context, userID string) ([]models.Purchase, error) {
	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purchases")
	}
	if purchases == nil {
		purchases = []models.Purchase{}
	}
	return purchases, nil
}

// GrantAccess creates a manual grant outside the purchase flow.
func (s *PurchaseService) GrantAccess(ctx context.Context, req dto.GrantAccessRequest, adminID string) (*models.AccessGrant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}
	ref, err := models.ParseContentRef(req.ItemType, req.ItemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "itemType must be SEASON or EPISODE")
	}
	if err := s.ensureItemExists(ctx, ref); err != nil {
		return nil, err
	}
	grant := &models.AccessGrant{
		UserID:    req.UserID,
		ItemType:  ref.Type(),
		ItemID:    ref.ID(),
		GrantedBy: models.GrantedByAdmin,
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrMissingParent) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant access")
	}
	payload, _ := json.Marshal(grant)
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionGrantCreate,
		Resource:   "access_grants",
		ResourceID: &grant.ID,
		NewValues:  payload,
	})
	return grant, nil
}

// RevokeGrant deletes a grant. Free content stays watchable regardless.
func (s *PurchaseService) RevokeGrant(ctx context.Context, grantID, adminID string) error {
	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grant")
	}
	if err := s.grants.Delete(ctx, grantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke grant")
	}
	payload, _ := json.Marshal(grant)
	recordAudit(ctx, s.audit, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionGrantRevoke,
		Resource:   "access_grants",
		ResourceID: &grant.ID,
		OldValues:  payload,
	})
	return nil
}

// ListUserGrants returns every grant held by userID.
func (s *PurchaseService) ListUserGrants(ctx context.Context, userID string) ([]models.AccessGrant, error) {
	grants, err := s.grants.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grants")
	}
	if grants == nil {
		grants = []models.AccessGrant{}
	}
	return grants, nil
}

func (s *PurchaseService) ensureItemExists(ctx context.Context, ref models.ContentRef) error {
	var err error
	if ref.IsSeason() {
		_, err = s.catalog.GetSeason(ctx, ref.ID())
	} else {
		_, err = s.catalog.GetEpisode(ctx, ref.ID())
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, strings.ToLower(string(ref.Type()))+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
}

func optionalNote(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return &note
}
