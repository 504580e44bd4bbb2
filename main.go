package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billbatista/acasinha-finance/api"
	"github.com/billbatista/acasinha-finance/auth"
	"github.com/billbatista/acasinha-finance/category"
	"github.com/billbatista/acasinha-finance/config"
	"github.com/billbatista/acasinha-finance/debt"
	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/billbatista/acasinha-finance/mailer"
	"github.com/billbatista/acasinha-finance/postgres"
	"github.com/billbatista/acasinha-finance/user"
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			printErrorAndExit("running migrations", err)
		}
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, cfg.EventBuffer)
	worker.Start()
	defer worker.Shutdown()

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.SMTP.Host != "" && !cfg.IsDevelopment() {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	categories := category.NewService(category.NewRepository(db))

	handler := &api.Handler{
		Auth: auth.NewService(user.NewRepository(db), auth.NewResetRepository(db), tokens, mail,
			auth.WithResetTTL(cfg.ResetCodeTTL),
			auth.WithEvents(worker),
		),
		Categories: categories,
		Expenses: expense.NewService(expense.NewRepository(db), categories,
			expense.WithLocation(cfg.Location),
			expense.WithEvents(worker),
		),
		Debts: debt.NewService(debt.NewRepository(db),
			debt.WithLocation(cfg.Location),
			debt.WithEvents(worker),
		),
		Incomes: income.NewService(income.NewRepository(db),
			income.WithLocation(cfg.Location),
			income.WithEvents(worker),
		),
		Events: evtlogger,
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(tokens, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
