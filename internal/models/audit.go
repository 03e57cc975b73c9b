package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionRegister       = "REGISTER"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"

	AuditActionPurchaseCreate  = "PURCHASE_CREATE"
	AuditActionPurchaseApprove = "PURCHASE_APPROVE"
	AuditActionPurchaseReject  = "PURCHASE_REJECT"
	AuditActionPurchaseRefund  = "PURCHASE_REFUND"
	AuditActionGrantCreate     = "GRANT_CREATE"
	AuditActionGrantRevoke     = "GRANT_REVOKE"
	AuditActionCatalogChange   = "CATALOG_CHANGE"
	AuditActionProofView       = "PROOF_VIEW"
	AuditActionLedgerExport    = "LEDGER_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
