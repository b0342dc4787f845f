package receiptimport

import (
	"context"
	"fmt"

	"github.com/restoledger/backend/internal/domain/receipt"
)

// persister writes one merged receipt: scalar upsert first, then item replacement
type persister struct {
	repo   receipt.ReceiptRepository
	atomic bool
}

func (p persister) persist(ctx context.Context, r *receipt.Receipt) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	if p.atomic {
		created, err := p.repo.SaveWithItems(ctx, r)
		if err != nil {
			return false, fmt.Errorf("save receipt %s: %w", r.Key(), err)
		}
		return created, nil
	}

	created, err := p.repo.Upsert(ctx, r)
	if err != nil {
		return false, fmt.Errorf("upsert receipt %s: %w", r.Key(), err)
	}
	r.NumberItems()
	if err := p.repo.ReplaceItems(ctx, r.ID, r.Items); err != nil {
		return created, fmt.Errorf("replace items of %s: %w", r.Key(), err)
	}
	return created, nil
}
