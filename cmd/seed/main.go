// seed loads a small demo dataset: an admin account, the school
// letterhead, two classes with fee schedules, and a handful of students.
// Safe to rerun; everything is upserted by its natural key.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"os"

	"school-office/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		logrus.Fatalf("begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	logrus.Info("seeding admin account")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
		logrus.Warn("SEED_ADMIN_PASSWORD not set, using default demo password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logrus.Fatalf("hash admin password: %v", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ('admin', $1, 'admin')
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		string(hash)); err != nil {
		logrus.Fatalf("seed admin: %v", err)
	}

	logrus.Info("seeding school letterhead")
	if _, err := tx.Exec(ctx, `
		INSERT INTO settings (key, data)
		VALUES ('school', '{"school_name": "Shree Janata Secondary School", "school_address": "Itahari, Sunsari", "school_phone": "025-580214"}')
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data`); err != nil {
		logrus.Fatalf("seed settings: %v", err)
	}

	logrus.Info("seeding classes")
	if _, err := tx.Exec(ctx, `
		INSERT INTO classes (name, section, fees)
		SELECT v.name, v.section, v.fees::jsonb
		FROM (VALUES
		    ('Four', 'A', '{"monthly": "900",  "exam": "250", "tuition": "400", "sports": "100", "stationery": "150"}'),
		    ('Five', 'A', '{"monthly": "1000", "exam": "300", "tuition": "500", "sports": "150", "stationery": "150"}')
		) AS v(name, section, fees)
		WHERE NOT EXISTS (
		    SELECT 1 FROM classes c WHERE c.name = v.name AND c.section = v.section
		)`); err != nil {
		logrus.Fatalf("seed classes: %v", err)
	}

	logrus.Info("seeding students")
	if _, err := tx.Exec(ctx, `
		INSERT INTO students (sid, name, roll_number, class_id, address, opening_balance, in_tuition)
		SELECT v.sid, v.name, v.roll, c.id, v.address, v.opening::numeric, v.tuition
		FROM (VALUES
		    ('100001', 'Anju Karki',    1, 'Five', 'Itahari-4',  '0',    false),
		    ('100002', 'Bikash Thapa',  2, 'Five', 'Itahari-9',  '1250', false),
		    ('100003', 'Chandra Rai',   3, 'Five', 'Dharan-12',  '0',    true),
		    ('100004', 'Dipa Limbu',    1, 'Four', 'Itahari-1',  '0',    false),
		    ('100005', 'Eshan Shrestha',2, 'Four', 'Duhabi-3',   '600',  true)
		) AS v(sid, name, roll, class, address, opening, tuition)
		JOIN classes c ON c.name = v.class AND c.section = 'A'
		ON CONFLICT (sid) DO NOTHING`); err != nil {
		logrus.Fatalf("seed students: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logrus.Fatalf("commit: %v", err)
	}
	logrus.Info("seed complete")
}
