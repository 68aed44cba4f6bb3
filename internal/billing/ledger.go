package billing

// The ledger ties documents to master data: every posted invoice moves
// product stock down by the billed quantity and the customer's outstanding
// balance up by the unpaid portion. Updates and deletes first revert the
// document's previous effect, then reapply, so the ledger always reflects
// exactly the documents that exist. Quotations never post.

import "context"

func applyLedger(ctx context.Context, tx TxRepository, doc *Document) error {
	if doc.Type != TypeInvoice {
		return nil
	}
	for _, item := range doc.Items {
		if item.ProductID == nil {
			continue
		}
		if err := tx.AdjustProductStock(ctx, doc.UserID, *item.ProductID, item.Quantity.Neg()); err != nil {
			return err
		}
	}
	if doc.CustomerID != nil && !doc.Balance().IsZero() {
		if err := tx.AdjustCustomerBalance(ctx, doc.UserID, *doc.CustomerID, doc.Balance()); err != nil {
			return err
		}
	}
	return nil
}

func revertLedger(ctx context.Context, tx TxRepository, doc *Document) error {
	if doc.Type != TypeInvoice {
		return nil
	}
	for _, item := range doc.Items {
		if item.ProductID == nil {
			continue
		}
		if err := tx.AdjustProductStock(ctx, doc.UserID, *item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	if doc.CustomerID != nil && !doc.Balance().IsZero() {
		if err := tx.AdjustCustomerBalance(ctx, doc.UserID, *doc.CustomerID, doc.Balance().Neg()); err != nil {
			return err
		}
	}
	return nil
}
