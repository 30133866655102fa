package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"atmfinder/internal/model"
)

// Fixed width so fetched_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// GetCachedPage returns the page stored under key if it is younger than maxAge.
// The bool reports whether a fresh entry was found.
func GetCachedPage(db *sql.DB, key string, maxAge time.Duration, now time.Time) (model.Page, bool, error) {
	query := `
		SELECT page_offset, total_count, payload, fetched_at
		FROM atm_pages
		WHERE query_key = ?
	`

	var page model.Page
	var payload, fetchedAt string
	err := db.QueryRow(query, key).Scan(&page.PageOffset, &page.TotalCount, &payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, false, nil
	}
	if err != nil {
		return model.Page{}, false, fmt.Errorf("failed to get cached page: %w", err)
	}

	ts, err := time.Parse(timeLayout, fetchedAt)
	if err != nil {
		return model.Page{}, false, fmt.Errorf("failed to parse fetched_at %q: %w", fetchedAt, err)
	}
	if now.Sub(ts) > maxAge {
		return model.Page{}, false, nil
	}

	if err := json.Unmarshal([]byte(payload), &page.Atms); err != nil {
		return model.Page{}, false, fmt.Errorf("failed to decode cached page: %w", err)
	}

	return page, true, nil
}

// PutCachedPage stores (or replaces) the page for key.
func PutCachedPage(db *sql.DB, key string, page model.Page, now time.Time) error {
	query := `
		INSERT INTO atm_pages (query_key, page_offset, total_count, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(query_key) DO UPDATE SET
			page_offset = excluded.page_offset,
			total_count = excluded.total_count,
			payload     = excluded.payload,
			fetched_at  = excluded.fetched_at
	`

	atms := page.Atms
	if atms == nil {
		atms = []model.AtmRecord{}
	}
	payload, err := json.Marshal(atms)
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}

	_, err = db.Exec(query, key, page.PageOffset, page.TotalCount, string(payload), now.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to store cached page: %w", err)
	}
	return nil
}

// PruneCachedPages deletes entries older than maxAge and returns how many went.
func PruneCachedPages(db *sql.DB, maxAge time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-maxAge).UTC().Format(timeLayout)

	res, err := db.Exec(`DELETE FROM atm_pages WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cached pages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned pages: %w", err)
	}
	return n, nil
}
