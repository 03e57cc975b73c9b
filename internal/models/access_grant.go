package models

import "time"

// GrantSource records who created an access grant.
type GrantSource string

const (
	GrantedBySystem GrantSource = "SYSTEM"
	GrantedByAdmin  GrantSource = "ADMIN"
)

// AccessGrant is the durable proof that a user may watch a content unit.
type AccessGrant struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"userId"`
	ItemType   ItemType    `db:"item_type" json:"itemType"`
	ItemID     string      `db:"item_id" json:"itemId"`
	GrantedBy  GrantSource `db:"granted_by" json:"grantedBy"`
	PurchaseID *string     `db:"purchase_id" json:"purchaseId,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

// Ref returns the content unit the grant unlocks.
func (g AccessGrant) Ref() (ContentRef, error) {
	return ParseContentRef(string(g.ItemType), g.ItemID)
}
