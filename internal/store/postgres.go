package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dailybid/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrDBNoLiveItem           = errors.New("database: no live item for day")
	ErrDBBidTooLow            = errors.New("database: bid not above current price")
	ErrDBDayConflict          = errors.New("database: day already has a queued or live item")
	ErrDBSubmissionNotFound   = errors.New("database: submission not found")
	ErrDBSubmissionNotPending = errors.New("database: submission is not pending")
)

// maxTxRetries bounds transparent retries of serialization failures before
// the error is surfaced.
const maxTxRetries = 3

type DBStore struct {
	DB *sql.DB
}

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{DB: db}
}

func ConnectDB(driver, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func RunMigrations(db *sql.DB, migrationsDir string) error {
	if migrationsDir == "" {
		return fmt.Errorf("migrations directory not specified")
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	if len(migrationFiles) == 0 {
		fmt.Println("No migration files found.")
		return nil
	}

	for _, fileName := range migrationFiles {
		filePath := filepath.Join(migrationsDir, fileName)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", fileName, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", fileName, err)
		}
		fmt.Printf("Applied migration: %s\n", fileName)
	}
	return nil
}

func (s *DBStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// isRetryableTxError reports whether err is a Postgres serialization or
// deadlock failure, which a fresh transaction attempt may resolve.
func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const itemColumns = `id, name, description, category, image_url, start_bid, current_bid, day_date, status, creator_id, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	item := &models.Item{}
	var creator sql.NullString
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Category,
		&item.ImageURL,
		&item.StartBid,
		&item.CurrentBid,
		&item.DayDate,
		&item.Status,
		&creator,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.CreatorID = creator.String
	return item, nil
}

// GetLiveItem returns the live item for day, or nil when none exists. The
// single-statement read cannot observe a half-applied rollover.
func (s *DBStore) GetLiveItem(ctx context.Context, day time.Time) (*models.Item, error) {
	query := `
        SELECT ` + itemColumns + `
        FROM items
        WHERE day_date = $1 AND status = $2`

	item, err := scanItem(s.DB.QueryRowContext(ctx, query, day.Format(models.DayFormat), models.ItemStatusLive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get live item: %w", err)
	}
	return item, nil
}

// EnsureLiveItem makes day have exactly one live item and returns it. In a
// single transaction it promotes a queued item for the day if one exists,
// otherwise inserts fallback directly live; a concurrent caller loses the
// insert race against the partial unique index and reads the winner's row.
// Idempotent: repeat calls return the same item.
func (s *DBStore) EnsureLiveItem(ctx context.Context, day time.Time, fallback models.ItemDraft) (*models.Item, error) {
	var item *models.Item
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = ensureLiveItemTx(ctx, tx, day, fallback)
		return err
	})
	return item, err
}

func ensureLiveItemTx(ctx context.Context, tx *sql.Tx, day time.Time, fallback models.ItemDraft) (*models.Item, error) {
	_, err := tx.ExecContext(ctx, `
        UPDATE items SET status = $1, updated_at = NOW()
        WHERE status = $2 AND day_date = $3`,
		models.ItemStatusLive, models.ItemStatusQueued, day.Format(models.DayFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to promote queued item: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO items (name, description, category, image_url, start_bid, current_bid, day_date, status)
        VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
        ON CONFLICT (day_date) WHERE status IN ('queued', 'live') DO NOTHING`,
		fallback.Name, fallback.Description, fallback.Category, fallback.ImageURL,
		fallback.StartBid, day.Format(models.DayFormat), models.ItemStatusLive)
	if err != nil {
		return nil, fmt.Errorf("failed to insert fallback item: %w", err)
	}

	item, err := scanItem(tx.QueryRowContext(ctx, `
        SELECT `+itemColumns+`
        FROM items
        WHERE day_date = $1 AND status = $2`,
		day.Format(models.DayFormat), models.ItemStatusLive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDBNoLiveItem
		}
		return nil, fmt.Errorf("failed to read live item: %w", err)
	}
	return item, nil
}

// Rollover applies the daily transition as one transaction: close every
// live item from an earlier day, then run the EnsureLiveItem steps for
// newDay. Running it twice for the same day is a no-op the second time.
func (s *DBStore) Rollover(ctx context.Context, newDay time.Time, fallback models.ItemDraft) (*models.Item, error) {
	var item *models.Item
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
            UPDATE items SET status = $1, updated_at = NOW()
            WHERE status = $2 AND day_date < $3`,
			models.ItemStatusClosed, models.ItemStatusLive, newDay.Format(models.DayFormat))
		if err != nil {
			return fmt.Errorf("failed to close expired items: %w", err)
		}

		item, err = ensureLiveItemTx(ctx, tx, newDay, fallback)
		return err
	})
	return item, err
}

// InsertQueuedItem creates an item in queued status for day. The partial
// unique index rejects a second queued or live item for the same day.
func (s *DBStore) InsertQueuedItem(ctx context.Context, draft models.ItemDraft, day time.Time) (*models.Item, error) {
	query := `
        INSERT INTO items (name, description, category, image_url, start_bid, current_bid, day_date, status, creator_id)
        VALUES ($1, $2, $3, $4, $5, $5, $6, $7, NULLIF($8, ''))
        RETURNING ` + itemColumns

	item, err := scanItem(s.DB.QueryRowContext(ctx, query,
		draft.Name, draft.Description, draft.Category, draft.ImageURL,
		draft.StartBid, day.Format(models.DayFormat), models.ItemStatusQueued, draft.CreatorID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDBDayConflict
		}
		return nil, fmt.Errorf("failed to insert queued item: %w", err)
	}
	return item, nil
}

// ExecuteBidTransaction atomically records a bid and raises the item's
// current price. The FOR UPDATE row lock totally orders bids per item: a
// bid serialized after a higher one re-reads the raised price and fails.
// On ErrDBBidTooLow the returned price is the current one.
func (s *DBStore) ExecuteBidTransaction(ctx context.Context, day time.Time, userID string, amount int64) (*models.Item, int64, error) {
	var (
		item         *models.Item
		currentPrice int64
	)
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		locked, err := scanItem(tx.QueryRowContext(ctx, `
            SELECT `+itemColumns+`
            FROM items
            WHERE day_date = $1 AND status = $2
            FOR UPDATE`,
			day.Format(models.DayFormat), models.ItemStatusLive))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDBNoLiveItem
			}
			return fmt.Errorf("failed to lock live item: %w", err)
		}

		currentPrice = locked.CurrentBid
		if amount <= locked.CurrentBid {
			return ErrDBBidTooLow
		}

		bidID := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
            INSERT INTO bids (id, item_id, user_id, amount, created_at)
            VALUES ($1, $2, $3, $4, NOW())`,
			bidID, locked.ID, userID, amount)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE items SET current_bid = $1, updated_at = NOW() WHERE id = $2`,
			amount, locked.ID)
		if err != nil {
			return fmt.Errorf("failed to raise current bid: %w", err)
		}

		locked.CurrentBid = amount
		currentPrice = amount
		item = locked
		return nil
	})
	if err != nil {
		return nil, currentPrice, err
	}
	return item, currentPrice, nil
}

// GetRecentBids returns the limit most recent committed bids joined with
// item display data, newest first by insertion order.
func (s *DBStore) GetRecentBids(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	query := `
        SELECT b.id, b.item_id, i.name, i.day_date, b.user_id, b.amount, b.created_at
        FROM bids b
        JOIN items i ON i.id = b.item_id
        ORDER BY b.seq DESC
        LIMIT $1`

	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent bids: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		var day time.Time
		if err := rows.Scan(&e.BidID, &e.ItemID, &e.ItemName, &day, &e.UserID, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent bid: %w", err)
		}
		e.ItemDay = day.Format(models.DayFormat)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent bids: %w", err)
	}
	return entries, nil
}

func (s *DBStore) CreateSubmission(ctx context.Context, sub *models.Submission) (*models.Submission, error) {
	query := `
        INSERT INTO submissions (name, description, category, image_url, start_bid, submitter_id, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	sub.Status = models.SubmissionStatusPending
	err := s.DB.QueryRowContext(ctx, query,
		sub.Name, sub.Description, sub.Category, sub.ImageURL,
		sub.StartBid, sub.SubmitterID, sub.Status,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return sub, nil
}

func (s *DBStore) GetSubmissionByID(ctx context.Context, id int64) (*models.Submission, error) {
	query := `
        SELECT id, name, description, category, image_url, start_bid, submitter_id, status, created_at, updated_at
        FROM submissions
        WHERE id = $1`

	sub := &models.Submission{}
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.Name, &sub.Description, &sub.Category, &sub.ImageURL,
		&sub.StartBid, &sub.SubmitterID, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDBSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// ApproveSubmissionTx flips a pending submission to approved and enqueues
// its item for day, as one transaction. A duplicate day surfaces as
// ErrDBDayConflict and the submission stays pending.
func (s *DBStore) ApproveSubmissionTx(ctx context.Context, id int64, day time.Time) (*models.Item, error) {
	var item *models.Item
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		sub := &models.Submission{}
		err := tx.QueryRowContext(ctx, `
            SELECT id, name, description, category, image_url, start_bid, submitter_id, status
            FROM submissions
            WHERE id = $1
            FOR UPDATE`, id,
		).Scan(&sub.ID, &sub.Name, &sub.Description, &sub.Category, &sub.ImageURL,
			&sub.StartBid, &sub.SubmitterID, &sub.Status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDBSubmissionNotFound
			}
			return fmt.Errorf("failed to lock submission: %w", err)
		}
		if sub.Status != models.SubmissionStatusPending {
			return ErrDBSubmissionNotPending
		}

		item, err = scanItem(tx.QueryRowContext(ctx, `
            INSERT INTO items (name, description, category, image_url, start_bid, current_bid, day_date, status, creator_id)
            VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8)
            RETURNING `+itemColumns,
			sub.Name, sub.Description, sub.Category, sub.ImageURL,
			sub.StartBid, day.Format(models.DayFormat), models.ItemStatusQueued, sub.SubmitterID))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDBDayConflict
			}
			return fmt.Errorf("failed to enqueue item from submission: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE submissions SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.SubmissionStatusApproved, id)
		if err != nil {
			return fmt.Errorf("failed to mark submission approved: %w", err)
		}
		return nil
	})
	return item, err
}

// RejectSubmission flips a pending submission to rejected.
func (s *DBStore) RejectSubmission(ctx context.Context, id int64) error {
	return s.withTxRetry(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM submissions WHERE id = $1 FOR UPDATE`, id,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDBSubmissionNotFound
			}
			return fmt.Errorf("failed to lock submission: %w", err)
		}
		if status != models.SubmissionStatusPending {
			return ErrDBSubmissionNotPending
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE submissions SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.SubmissionStatusRejected, id)
		if err != nil {
			return fmt.Errorf("failed to mark submission rejected: %w", err)
		}
		return nil
	})
}

// withTxRetry runs fn inside a transaction, retrying serialization and
// deadlock failures up to maxTxRetries before surfacing the error.
func (s *DBStore) withTxRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.runInTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxRetries, lastErr)
}

func (s *DBStore) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
