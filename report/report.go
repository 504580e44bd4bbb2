package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-finance/debt"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/phpdave11/gofpdf"
)

const dateLayout = "2006-01-02"

// ExpenseSummaryPDF renders an expense summary with its per-status counts and
// the expenses it was built from.
func ExpenseSummaryPDF(sum *expense.Summary) ([]byte, error) {
	pdf, tr := newDocument("Expense Summary")

	period := "All expenses"
	if sum.Month > 0 && sum.Year > 0 {
		period = time.Date(sum.Year, time.Month(sum.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	}
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr("Period: "+period))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Expenses: %d", sum.Total))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Total amount: "+money.Format(sum.TotalAmount))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Total paid: "+money.Format(sum.TotalPaid))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Total pending: "+money.Format(sum.TotalPending))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "By status")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, st := range ledger.ExpenseStatuses() {
		pdf.Cell(60, 7, string(st))
		pdf.Cell(30, 7, fmt.Sprintf("%d", sum.ByStatus[st]))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(sum.Expenses) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(60, 7, "Expense")
		pdf.Cell(30, 7, "Due")
		pdf.Cell(30, 7, "Amount")
		pdf.Cell(30, 7, "Paid")
		pdf.Cell(30, 7, "Status")
		pdf.Ln(7)

		pdf.SetFont("Helvetica", "", 10)
		for _, e := range sum.Expenses {
			pdf.Cell(60, 7, tr(truncate(e.DetailName, 32)))
			pdf.Cell(30, 7, e.DueDate.Format(dateLayout))
			pdf.Cell(30, 7, money.Format(e.Amount))
			pdf.Cell(30, 7, money.Format(e.PaidAmount))
			pdf.Cell(30, 7, string(e.Status))
			pdf.Ln(7)
		}
	}

	return output(pdf)
}

// DebtorReportPDF renders the payments received from one debtor.
func DebtorReportPDF(r *debt.Report) ([]byte, error) {
	pdf, tr := newDocument("Payment Report")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr("Debtor: "+r.Debtor.FullName()))
	pdf.Ln(6)
	if r.Debtor.Email != "" {
		pdf.Cell(0, 8, tr("Email: "+r.Debtor.Email))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total paid: "+money.Format(r.TotalPaid))
	pdf.Ln(10)

	if len(r.Payments) == 0 {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, "No payments registered.")
		return output(pdf)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(30, 7, "Date")
	pdf.Cell(60, 7, "Debt")
	pdf.Cell(60, 7, "Reason")
	pdf.Cell(30, 7, "Amount")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 10)
	for _, p := range r.Payments {
		pdf.Cell(30, 7, p.PaymentDate.Format(dateLayout))
		pdf.Cell(60, 7, tr(truncate(p.DebtReason, 32)))
		pdf.Cell(60, 7, tr(truncate(p.PaymentReason, 32)))
		pdf.Cell(30, 7, money.Format(p.Amount))
		pdf.Ln(7)
	}

	return output(pdf)
}

func newDocument(title string) (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(8)

	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
