package receipt

import "github.com/restoledger/backend/internal/domain/shared"

var (
	// ErrReceiptNotFound is returned when no receipt matches a key
	ErrReceiptNotFound = shared.NewDomainError("RECEIPT_NOT_FOUND", "receipt not found")
	// ErrMissingOrderNum is returned for receipts without an order number
	ErrMissingOrderNum = shared.NewDomainError("MISSING_ORDER_NUM", "receipt has no order number")
)

// Validate checks the invariants of a receipt before it is stored
func (r *Receipt) Validate() error {
	if r.OrderNum == "" {
		return ErrMissingOrderNum
	}
	if r.Date.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "receipt has no business date")
	}
	return nil
}
