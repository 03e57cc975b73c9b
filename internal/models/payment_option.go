package models

import "time"

// PaymentOption is a mobile money account learners pay into.
type PaymentOption struct {
	ID            string          `db:"id" json:"id"`
	Provider      PaymentProvider `db:"provider" json:"provider"`
	AccountName   string          `db:"account_name" json:"accountName"`
	AccountNumber string          `db:"account_number" json:"accountNumber"`
	MerchantID    *string         `db:"merchant_id" json:"merchantId,omitempty"`
	QRCodeURL     *string         `db:"qr_code_url" json:"qrCodeUrl,omitempty"`
	IsActive      bool            `db:"is_active" json:"isActive"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}
