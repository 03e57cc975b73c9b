package dto

import "github.com/noah-isme/course-market-api/internal/models"

// InitiatePurchaseRequest is submitted by a learner after paying out of band.
type InitiatePurchaseRequest struct {
	ItemType        string  `json:"itemType" validate:"required"`
	ItemID          string  `json:"itemId" validate:"required"`
	Amount          string  `json:"amount" validate:"required"`
	Currency        string  `json:"currency" validate:"omitempty,len=3"`
	Provider        string  `json:"provider"`
	TransactionRef  string  `json:"transactionRef"`
	PaymentProofURL *string `json:"paymentProofUrl"`
}

// ReviewPurchaseRequest carries an optional admin note for reject and refund.
type ReviewPurchaseRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// PurchaseQuery mirrors the admin ledger filters.
type PurchaseQuery struct {
	Statuses []models.PurchaseStatus
	Page     int
	PageSize int
}

// GrantAccessRequest creates a manual grant.
type GrantAccessRequest struct {
	UserID   string `json:"userId" validate:"required"`
	ItemType string `json:"itemType" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
}

// ProofUploadResponse is the opaque reference for an uploaded payment proof.
type ProofUploadResponse struct {
	ProofURL  string `json:"paymentProofUrl"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}
