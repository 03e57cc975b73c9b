package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
	"github.com/noah-isme/course-market-api/pkg/export"
)

const exportPageSize = 200

type ledgerSource interface {
	List(ctx context.Context, filter models.PurchaseFilter) ([]models.PurchaseWithBuyer, int, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes ledger exports.
type ExportConfig struct {
	MaxRows int
}

// ExportResult is a rendered export ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService renders the purchase ledger for offline reconciliation.
type ExportService struct {
	ledger ledgerSource
	csv    datasetRenderer
	pdf    datasetRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(ledger ledgerSource, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{ledger: ledger, csv: csv, pdf: pdf, logger: logger, cfg: cfg, now: time.Now}
}

// ExportPurchases renders ledger rows matching statuses in the requested format.
func (s *ExportService) ExportPurchases(ctx context.Context, statuses []models.PurchaseStatus, rawFormat string) (*ExportResult, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown purchase status "+string(status))
		}
	}

	rows, err := s.collect(ctx, statuses)
	if err != nil {
		return nil, err
	}
	dataset := ledgerDataset(rows)

	renderer := s.csv
	if format == export.FormatPDF {
		renderer = s.pdf
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("purchase ledger exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return &ExportResult{
		Filename:    fmt.Sprintf("purchases_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Payload:     payload,
		Rows:        len(rows),
	}, nil
}

func (s *ExportService) collect(ctx context.Context, statuses []models.PurchaseStatus) ([]models.PurchaseWithBuyer, error) {
	var all []models.PurchaseWithBuyer
	for page := 1; ; page++ {
		rows, total, err := s.ledger.List(ctx, models.PurchaseFilter{Statuses: statuses, Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchases")
		}
		all = append(all, rows...)
		if len(rows) < exportPageSize || len(all) >= total {
			break
		}
		if len(all) >= s.cfg.MaxRows {
			s.logger.Warn("purchase export truncated", zap.Int("max_rows", s.cfg.MaxRows), zap.Int("total", total))
			all = all[:s.cfg.MaxRows]
			break
		}
	}
	return all, nil
}

func ledgerDataset(rows []models.PurchaseWithBuyer) export.Dataset {
	data := export.Dataset{
		Title:   "Purchase ledger",
		Headers: []string{"Purchase ID", "Created", "Buyer", "Email", "Item", "Amount", "Provider", "Transaction Ref", "Status", "Reviewed"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		reviewed := ""
		if row.ReviewedAt != nil {
			reviewed = row.ReviewedAt.UTC().Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, []string{
			row.ID,
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.BuyerName,
			row.BuyerEmail,
			string(row.ItemType) + ":" + row.ItemID,
			row.Amount + " " + row.Currency,
			string(row.Provider),
			row.TransactionRef,
			string(row.Status),
			reviewed,
		})
	}
	return data
}
