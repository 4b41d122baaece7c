package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nexochat/nexo/app/models"
)

const PurchasesSheet = "Purchases"

var purchaseHeader = []interface{}{
	"ID", "Transaction", "Status", "Test", "Customer", "Email", "Document", "Phone",
	"Product", "Price", "Total", "Payment method", "Plan", "Plan fallback",
	"Processed", "User ID", "Error", "Received at",
}

// WritePurchasesXLSX streams purchases as a single-sheet workbook to w.
// Amounts are written as decimal numbers in major units.
func WritePurchasesXLSX(w io.Writer, purchases []models.Purchase) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PurchasesSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(PurchasesSheet)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", purchaseHeader); err != nil {
		return err
	}
	for i, p := range purchases {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, purchaseRow(p)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func purchaseRow(p models.Purchase) []interface{} {
	var userID interface{}
	if p.UserID != nil {
		userID = *p.UserID
	}
	var errMsg string
	if p.ErrorMessage != nil {
		errMsg = *p.ErrorMessage
	}
	return []interface{}{
		p.ID, p.TransactionID, p.Status, p.Test, p.CustomerName, p.CustomerEmail,
		p.CustomerDocument, p.CustomerPhone, p.ProductName,
		MajorUnits(p.ProductPrice), MajorUnits(p.TotalPrice),
		p.PaymentMethod, p.ResolvedPlan, p.PlanFallback, p.Processed, userID, errMsg,
		p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// MajorUnits converts minor units (cents) to a float for spreadsheet cells.
func MajorUnits(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}
