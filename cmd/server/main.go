package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "school-office/internal/adapters/web"
	"school-office/internal/ai"
	"school-office/internal/app"
	"school-office/internal/core"
	"school-office/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer pool.Close()

	catalog := core.NewCatalogService(pool)
	students := core.NewStudentService(pool)
	invoices := core.NewInvoiceService(pool)
	if os.Getenv("REBILL_AFTER_PAYMENT") == "false" {
		invoices.AllowRebillAfterPayment = false
	}
	payments := core.NewPaymentService(pool)
	exams := core.NewExamService(pool)
	users := core.NewUserService(pool)
	settings := core.NewSettingsService(pool)
	reporting := core.NewReportingService(pool)
	documents := core.NewDocumentService(pool)

	var agent ai.AgentService
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		agent = ai.NewAgent(apiKey)
	} else {
		logrus.Warn("OPENAI_API_KEY is not set, billing assistant disabled")
	}

	svc := app.NewAppService(pool, catalog, students, invoices, payments,
		exams, users, settings, reporting, documents, agent)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logrus.Fatal("JWT_SECRET is not set")
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret)

	logrus.Infof("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logrus.Fatalf("server: %v", err)
	}
}
