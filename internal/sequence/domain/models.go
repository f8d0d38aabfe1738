package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DocumentType is the closed set of document kinds that carry numbered
// sequences. Adding a member requires a constraint widening plus a scope
// backfill evolution step.
type DocumentType string

const (
	DocumentTypeQuotation           DocumentType = "quotation"
	DocumentTypeSalesOrder          DocumentType = "sales_order"
	DocumentTypeInvoice             DocumentType = "invoice"
	DocumentTypeCreditNote          DocumentType = "credit_note"
	DocumentTypePurchaseOrder       DocumentType = "purchase_order"
	DocumentTypeGoodsReceiptNote    DocumentType = "goods_receipt_note"
	DocumentTypeVendorBill          DocumentType = "vendor_bill"
	DocumentTypeDebitNote           DocumentType = "debit_note"
	DocumentTypeWorkOrder           DocumentType = "work_order"
	DocumentTypeDeliveryChallan     DocumentType = "delivery_challan"
	DocumentTypePaymentReceipt      DocumentType = "payment_receipt"
	DocumentTypePaymentMade         DocumentType = "payment_made"
	DocumentTypePurchaseRequisition DocumentType = "purchase_requisition"
)

// DocumentTypes lists every recognized member in a stable order.
var DocumentTypes = []DocumentType{
	DocumentTypeQuotation,
	DocumentTypeSalesOrder,
	DocumentTypeInvoice,
	DocumentTypeCreditNote,
	DocumentTypePurchaseOrder,
	DocumentTypeGoodsReceiptNote,
	DocumentTypeVendorBill,
	DocumentTypeDebitNote,
	DocumentTypeWorkOrder,
	DocumentTypeDeliveryChallan,
	DocumentTypePaymentReceipt,
	DocumentTypePaymentMade,
	DocumentTypePurchaseRequisition,
}

func (d DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if d == known {
			return true
		}
	}
	return false
}

// Format is the numbering format applied to a sequence scope.
type Format struct {
	Prefix    string
	PadLength int
}

// DefaultFormats holds the per-type formats used when a scope is created
// lazily on first allocation.
var DefaultFormats = map[DocumentType]Format{
	DocumentTypeQuotation:           {Prefix: "QTN-", PadLength: 4},
	DocumentTypeSalesOrder:          {Prefix: "SO-", PadLength: 4},
	DocumentTypeInvoice:             {Prefix: "INV-", PadLength: 4},
	DocumentTypeCreditNote:          {Prefix: "CN-", PadLength: 4},
	DocumentTypePurchaseOrder:       {Prefix: "PO-", PadLength: 4},
	DocumentTypeGoodsReceiptNote:    {Prefix: "GRN-", PadLength: 4},
	DocumentTypeVendorBill:          {Prefix: "VB-", PadLength: 4},
	DocumentTypeDebitNote:           {Prefix: "DN-", PadLength: 4},
	DocumentTypeWorkOrder:           {Prefix: "WO-", PadLength: 4},
	DocumentTypeDeliveryChallan:     {Prefix: "DC-", PadLength: 4},
	DocumentTypePaymentReceipt:      {Prefix: "RCT-", PadLength: 4},
	DocumentTypePaymentMade:         {Prefix: "PMT-", PadLength: 4},
	DocumentTypePurchaseRequisition: {Prefix: "PR-", PadLength: 4},
}

// DocumentSequence is one counter stream, scoped to a company, branch,
// document type and financial year. current_number only moves forward within
// a scope's lifetime; a new financial year gets a fresh row.
type DocumentSequence struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID `gorm:"not null;index:idx_document_sequences_scope" json:"company_id"`
	BranchID        snowflake.ID `gorm:"not null;index:idx_document_sequences_scope" json:"branch_id"`
	DocumentType    DocumentType `gorm:"type:varchar(32);not null;index:idx_document_sequences_scope" json:"document_type"`
	FinancialYearID snowflake.ID `gorm:"not null;index:idx_document_sequences_scope" json:"financial_year_id"`
	Prefix          string       `gorm:"column:prefix_pattern;not null" json:"prefix_pattern"`
	PadLength       int          `gorm:"not null;default:4" json:"pad_length"`
	CurrentNumber   int64        `gorm:"not null;default:0" json:"current_number"`
	IsDeleted       bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DocumentSequence) TableName() string { return "document_sequences" }

// ScopeKey identifies one numbering stream.
type ScopeKey struct {
	CompanyID       snowflake.ID
	BranchID        snowflake.ID
	DocumentType    DocumentType
	FinancialYearID snowflake.ID
}

// FormatNumber renders the formatted document number. PadLength is a minimum
// width: numbers that outgrow it widen the suffix rather than failing.
func FormatNumber(prefix string, padLength int, n int64) string {
	if padLength < 1 {
		padLength = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, padLength, n)
}
