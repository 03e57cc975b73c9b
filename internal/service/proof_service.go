package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
	"github.com/noah-isme/course-market-api/pkg/storage"
)

type proofStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
}

type proofSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

// ProofConfig bounds accepted payment proof uploads.
type ProofConfig struct {
	MaxBytes     int64
	AllowedMIMEs []string
	// URLPrefix is prepended to the signed token to form the stored proof reference.
	URLPrefix string
}

// ProofService stores payment screenshots and serves them to reviewers.
type ProofService struct {
	storage proofStorage
	signer  proofSigner
	cfg     ProofConfig
	logger  *zap.Logger
}

// NewProofService constructs the proof store.
func NewProofService(store proofStorage, signer proofSigner, cfg ProofConfig, logger *zap.Logger) *ProofService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/png", "image/jpeg", "image/webp"}
	}
	return &ProofService{storage: store, signer: signer, cfg: cfg, logger: logger}
}

// Upload stores an image for userID and returns its opaque reference.
// The content type is sniffed from the bytes, never taken from the client.
func (s *ProofService) Upload(ctx context.Context, userID string, r io.Reader) (*dto.ProofUploadResponse, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proof file is empty")
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("proof file exceeds %d bytes", s.cfg.MaxBytes))
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), s.cfg.AllowedMIMEs...) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported proof type "+mtype.String())
	}

	name := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), mtype.Extension())
	if _, err := s.storage.Save(name, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proof")
	}
	token, _, err := s.signer.Generate(userID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign proof reference")
	}
	s.logger.Info("payment proof stored", zap.String("user_id", userID), zap.String("mime", mtype.String()), zap.Int("bytes", len(data)))

	return &dto.ProofUploadResponse{
		ProofURL:  s.cfg.URLPrefix + token,
		MimeType:  mtype.String(),
		SizeBytes: int64(len(data)),
	}, nil
}

// Open resolves a proof token to the stored file and its content type.
func (s *ProofService) Open(ctx context.Context, token string) (*os.File, string, error) {
	_, name, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "proof link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "proof not found")
	}
	file, err := s.storage.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "proof not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open proof")
	}
	mtype, err := mimetype.DetectReader(file)
	if err == nil {
		_, err = file.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = file.Close()
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read proof")
	}
	return file, mtype.String(), nil
}
