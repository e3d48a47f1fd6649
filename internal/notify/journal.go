package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

const createAlertsTableSQL = `
CREATE TABLE IF NOT EXISTS alerts (
	"id" TEXT NOT NULL PRIMARY KEY,
	"product" TEXT NOT NULL,
	"retailer" TEXT NOT NULL,
	"retailer_name" TEXT,
	"price" TEXT,
	"url" TEXT,
	"detected_at" INTEGER NOT NULL
);`

// Journal appends every emitted alert to a SQLite table. It is never read back into stock state.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.Exec(createAlertsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create alerts table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Name() string { return "journal" }

func (j *Journal) Send(ctx context.Context, ev stock.Event) error {
	m := NewMessage(ev)
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO alerts (id, product, retailer, retailer_name, price, url, detected_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Product, m.Retailer, m.RetailerName, m.Price, m.URL, m.DetectedAt.UnixNano(),
	)
	if err != nil {
		return errs.New("journal", errs.CodeNotify, errs.WithCause(err))
	}
	return nil
}

// Recent returns up to limit alerts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, product, retailer, retailer_name, price, url, detected_at FROM alerts
		 ORDER BY detected_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m          Message
			detectedAt int64
		)
		if err := rows.Scan(&m.ID, &m.Product, &m.Retailer, &m.RetailerName, &m.Price, &m.URL, &detectedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		m.DetectedAt = time.Unix(0, detectedAt).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
