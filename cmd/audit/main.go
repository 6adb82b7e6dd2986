// audit walks every student's invoice chain and reports links whose
// recorded "Previous Dues" no longer match the predecessor's balance.
// With -repair it rewrites the broken chains, one student per
// transaction, and prints where to resume if the walk dies part way.
//
// Usage: go run ./cmd/audit [-repair] [-from <studentID>]
package main

import (
	"context"
	"errors"
	"flag"

	"school-office/internal/core"
	"school-office/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	repair := flag.Bool("repair", false, "rewrite broken chains instead of only reporting them")
	from := flag.Int("from", 0, "student ID to resume the walk from")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer pool.Close()

	audit := core.NewAuditService(pool)

	if *repair {
		count, err := audit.RepairLedgers(ctx, *from)
		if err != nil {
			var partial *core.PartialRepairError
			if errors.As(err, &partial) {
				logrus.Errorf("repair stopped after student %d: %v", partial.LastStudentID, partial.Cause)
				logrus.Errorf("resume with -repair -from %d", partial.LastStudentID+1)
			}
			logrus.Fatalf("repair failed after %d students: %v", count, err)
		}
		logrus.Infof("repaired %d student ledgers", count)
		return
	}

	issues, err := audit.VerifyLedgers(ctx, *from)
	if err != nil {
		var partial *core.PartialRepairError
		if errors.As(err, &partial) {
			logrus.Errorf("verify stopped after student %d, resume with -from %d",
				partial.LastStudentID, partial.LastStudentID+1)
		}
		logrus.Fatalf("verify failed: %v", err)
	}

	if len(issues) == 0 {
		logrus.Info("all ledgers consistent")
		return
	}

	for _, issue := range issues {
		for _, v := range issue.Violations {
			logrus.WithFields(logrus.Fields{
				"student": issue.SID,
				"name":    issue.Name,
				"invoice": v.InvoiceID,
				"month":   v.Month,
				"year":    v.Year,
				"want":    v.Want.String(),
				"got":     v.Got.String(),
			}).Warn("broken chain link")
		}
	}
	logrus.Fatalf("%d student ledgers have broken chains, run with -repair to fix", len(issues))
}
