package api

import (
	"net/http"

	"github.com/billbatista/acasinha-finance/middleware"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Routes builds the HTTP router. Everything except /health and /auth requires
// a bearer token.
func (h *Handler) Routes(tokens middleware.TokenParser, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:         300,
	}))
	router.Use(middleware.Authenticate(tokens))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/forgot-password", h.forgotPassword)
		r.Post("/verify-code", h.verifyResetCode)
		r.Post("/reset-password", h.resetPassword)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", h.me)
		r.Put("/me", h.updateMe)
		r.Get("/events", h.listEvents)

		r.Route("/expense-types", func(r chi.Router) {
			r.Get("/", h.listTypes)
			r.Post("/", h.createType)
			r.Get("/{id}", h.getType)
			r.Delete("/{id}", h.deleteType)
			r.Get("/{id}/details", h.listDetails)
			r.Post("/{id}/details", h.createDetail)
		})
		r.Get("/expense-details/{id}", h.getDetail)
		r.Delete("/expense-details/{id}", h.deleteDetail)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.listExpenses)
			r.Post("/", h.createExpense)
			r.Get("/pending", h.pendingExpenses)
			r.Get("/summary", h.expenseSummary)
			r.Get("/summary.pdf", h.expenseSummaryPDF)
			r.Get("/{id}", h.getExpense)
			r.Put("/{id}", h.updateExpense)
			r.Delete("/{id}", h.deleteExpense)
			r.Get("/{id}/payments", h.listExpensePayments)
			r.Post("/{id}/payments", h.payExpense)
		})
		r.Delete("/expense-payments/{id}", h.deleteExpensePayment)

		r.Route("/debtors", func(r chi.Router) {
			r.Get("/", h.listDebtors)
			r.Post("/", h.createDebtor)
			r.Get("/summary", h.debtSummary)
			r.Get("/{id}", h.getDebtor)
			r.Get("/{id}/debts", h.listDebtorDebts)
			r.Get("/{id}/payments-report", h.paymentReport)
			r.Get("/{id}/payments-report.pdf", h.paymentReportPDF)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.listDebts)
			r.Post("/", h.createDebt)
			r.Get("/{id}", h.getDebt)
			r.Put("/{id}", h.updateDebt)
			r.Delete("/{id}", h.deleteDebt)
			r.Get("/{id}/payments", h.listDebtPayments)
			r.Post("/{id}/payments", h.payDebt)
		})
		r.Delete("/debt-payments/{id}", h.deleteDebtPayment)

		r.Get("/income-types", h.listIncomeTypes)
		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", h.listIncomes)
			r.Post("/", h.createIncome)
			r.Get("/summary/monthly", h.monthlyIncomeSummary)
			r.Get("/summary/yearly", h.yearlyIncomeSummary)
			r.Get("/{id}", h.getIncome)
			r.Put("/{id}", h.updateIncome)
			r.Delete("/{id}", h.deleteIncome)
		})
	})

	return router
}
