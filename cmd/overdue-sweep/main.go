package main

import (
	"time"

	"cauntr-backend/internal/config"
	"cauntr-backend/internal/database"
	"cauntr-backend/internal/invoice"
)

// Flips non-settled invoices past their payment date to OVERDUE. Meant
// to run from cron once a day.
func main() {
	cfg := config.Load()
	log := config.GetLogger()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}

	flipped, err := invoice.MarkOverdue(db, time.Now())
	if err != nil {
		log.WithError(err).Fatal("overdue sweep failed")
	}
	log.WithField("invoices", flipped).Info("overdue sweep complete")
}
