package models

import "time"

// PurchaseStatus is the lifecycle state of a purchase attempt.
type PurchaseStatus string

const (
	PurchaseStatusPending  PurchaseStatus = "PENDING"
	PurchaseStatusPaid     PurchaseStatus = "PAID"
	PurchaseStatusFailed   PurchaseStatus = "FAILED"
	PurchaseStatusRefunded PurchaseStatus = "REFUNDED"
)

// Valid reports whether the status is known.
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusPaid, PurchaseStatusFailed, PurchaseStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is defined from s.
func (s PurchaseStatus) IsTerminal() bool {
	return s != PurchaseStatusPending
}

// PurchaseTransition is an edge in the purchase state machine.
type PurchaseTransition struct {
	From PurchaseStatus
	To   PurchaseStatus
}

var purchaseTransitions = map[PurchaseTransition]bool{
	{From: PurchaseStatusPending, To: PurchaseStatusPaid}:     true,
	{From: PurchaseStatusPending, To: PurchaseStatusFailed}:   true,
	{From: PurchaseStatusPending, To: PurchaseStatusRefunded}: true,
}

// CanTransitionPurchase reports whether a purchase may move from one status to another.
func CanTransitionPurchase(from, to PurchaseStatus) bool {
	return purchaseTransitions[PurchaseTransition{From: from, To: to}]
}

// PaymentProvider names a mobile money channel.
type PaymentProvider string

const (
	ProviderTelebirr  PaymentProvider = "TELEBIRR"
	ProviderCBEBirr   PaymentProvider = "CBE_BIRR"
	ProviderHelloCash PaymentProvider = "HELLOCASH"
)

// Valid reports whether the provider is supported.
func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderTelebirr, ProviderCBEBirr, ProviderHelloCash:
		return true
	}
	return false
}

// Purchase records a single buy attempt. It never authorises access by itself.
type Purchase struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"userId"`
	ItemType        ItemType        `db:"item_type" json:"itemType"`
	ItemID          string          `db:"item_id" json:"itemId"`
	Amount          string          `db:"amount" json:"amount"`
	Currency        string          `db:"currency" json:"currency"`
	Provider        PaymentProvider `db:"provider" json:"provider"`
	Status          PurchaseStatus  `db:"status" json:"status"`
	TransactionRef  string          `db:"transaction_ref" json:"transactionRef"`
	PaymentProofURL *string         `db:"payment_proof_url" json:"paymentProofUrl,omitempty"`
	ReviewedBy      *string         `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time      `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNote      *string         `db:"review_note" json:"reviewNote,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// Ref returns the content unit the purchase targets.
func (p Purchase) Ref() (ContentRef, error) {
	return ParseContentRef(string(p.ItemType), p.ItemID)
}

// PurchaseWithBuyer is a ledger row enriched with the buyer identity.
type PurchaseWithBuyer struct {
	Purchase
	BuyerName  string `db:"buyer_name" json:"buyerName"`
	BuyerEmail string `db:"buyer_email" json:"buyerEmail"`
}

// PurchaseFilter narrows ledger listings.
type PurchaseFilter struct {
	Statuses []PurchaseStatus
	UserID   string
	Page     int
	PageSize int
}

// SettlePurchaseParams describes a reviewed state change applied in one transaction.
type SettlePurchaseParams struct {
	PurchaseID string
	To         PurchaseStatus
	ReviewerID string
	Note       *string
	ReviewedAt time.Time
	// Grant, when set, is inserted in the same transaction as the status change.
	Grant *AccessGrant
}

// PendingStats summarises the admin review queue.
type PendingStats struct {
	Total  int        `db:"total" json:"total"`
	Stale  int        `db:"stale" json:"stale"`
	Oldest *time.Time `db:"oldest" json:"oldest,omitempty"`
}
