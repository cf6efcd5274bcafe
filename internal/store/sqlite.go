package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

const caseColumns = `id, user_id, name, description, start_date,
	deadline_date, original_deadline, repeat, is_finished, last_notification`

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; keep the pool to one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- users ---

// UpsertUser inserts a user row or refreshes its display fields.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name,
			last_name  = excluded.last_name`,
		u.ID, u.Username, u.FirstName, u.LastName, created,
	)
	return err
}

// GetUser returns a user by id or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, first_name, last_name, created_at
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}

// --- cases ---

// CreateCase inserts a new case without attachments and returns its id.
func (r *SQLiteRepo) CreateCase(ctx context.Context, c *domain.Case) (int64, error) {
	return r.CreateCaseWithFiles(ctx, c, nil)
}

// CreateCaseWithFiles inserts the case and its attachment rows in one
// transaction, so a failed commit persists neither.
func (r *SQLiteRepo) CreateCaseWithFiles(ctx context.Context, c *domain.Case, files []domain.File) (int64, error) {
	if c == nil {
		return 0, errors.New("nil case")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO cases (
			user_id, name, description, start_date,
			deadline_date, original_deadline, repeat, is_finished, last_notification
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Description, c.StartDate.UTC().Unix(),
		c.DeadlineDate.UTC().Unix(), c.OriginalDeadline.UTC().Unix(),
		string(c.Repeat), boolToInt(c.IsFinished), toNullInt64(c.LastNotification),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertFiles(ctx, tx, id, files); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func scanCase(row interface{ Scan(...any) error }) (domain.Case, error) {
	var (
		c                         domain.Case
		start, deadline, original int64
		repeat                    string
		finished                  int
		lastNS                    sql.NullInt64
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Description, &start,
		&deadline, &original, &repeat, &finished, &lastNS,
	); err != nil {
		return domain.Case{}, err
	}
	// Epoch seconds back to local wall clock; the evaluator and the card
	// renderer both work in the host's timezone.
	c.StartDate = time.Unix(start, 0)
	c.DeadlineDate = time.Unix(deadline, 0)
	c.OriginalDeadline = time.Unix(original, 0)
	c.Repeat = domain.Repeat(repeat)
	c.IsFinished = finished != 0
	c.LastNotification = fromNullInt64(lastNS)
	return c, nil
}

// GetCase returns a case by id or ErrNotFound.
func (r *SQLiteRepo) GetCase(ctx context.Context, id int64) (*domain.Case, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepo) listCases(ctx context.Context, query string, args ...any) ([]domain.Case, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ListUnfinished returns every active case across all users.
func (r *SQLiteRepo) ListUnfinished(ctx context.Context) ([]domain.Case, error) {
	return r.listCases(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE is_finished = 0`)
}

// ListActive returns the user's active cases ordered by deadline.
func (r *SQLiteRepo) ListActive(ctx context.Context, userID string) ([]domain.Case, error) {
	return r.listCases(ctx,
		`SELECT `+caseColumns+` FROM cases
		 WHERE user_id = ? AND is_finished = 0
		 ORDER BY deadline_date ASC`, userID)
}

// ListFinished returns the user's finished cases ordered by deadline.
func (r *SQLiteRepo) ListFinished(ctx context.Context, userID string) ([]domain.Case, error) {
	return r.listCases(ctx,
		`SELECT `+caseColumns+` FROM cases
		 WHERE user_id = ? AND is_finished = 1
		 ORDER BY deadline_date ASC`, userID)
}

// ListToday returns active cases whose deadline or original deadline falls
// on the same calendar day as day (in day's location).
func (r *SQLiteRepo) ListToday(ctx context.Context, userID string, day time.Time) ([]domain.Case, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	return r.listCases(ctx,
		`SELECT `+caseColumns+` FROM cases
		 WHERE user_id = ? AND is_finished = 0
		   AND ((deadline_date >= ? AND deadline_date < ?)
		     OR (original_deadline >= ? AND original_deadline < ?))
		 ORDER BY deadline_date ASC`,
		userID, from.UTC().Unix(), to.UTC().Unix(), from.UTC().Unix(), to.UTC().Unix())
}

func (r *SQLiteRepo) updateCase(ctx context.Context, caseID int64, set string, args ...any) error {
	args = append(args, caseID)
	res, err := r.db.ExecContext(ctx, `UPDATE cases SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFinished toggles the terminal flag of a case.
func (r *SQLiteRepo) SetFinished(ctx context.Context, caseID int64, finished bool) error {
	return r.updateCase(ctx, caseID, `is_finished = ?`, boolToInt(finished))
}

// SetLastNotification records the instant of the latest fire.
func (r *SQLiteRepo) SetLastNotification(ctx context.Context, caseID int64, t time.Time) error {
	return r.updateCase(ctx, caseID, `last_notification = ?`, t.UTC().Unix())
}

// UpdateName renames a case.
func (r *SQLiteRepo) UpdateName(ctx context.Context, caseID int64, name string) error {
	return r.updateCase(ctx, caseID, `name = ?`, name)
}

// UpdateDescription replaces a case description.
func (r *SQLiteRepo) UpdateDescription(ctx context.Context, caseID int64, description string) error {
	return r.updateCase(ctx, caseID, `description = ?`, description)
}

// UpdateDeadline moves the deadline; alsoOriginal additionally resets
// original_deadline.
func (r *SQLiteRepo) UpdateDeadline(ctx context.Context, caseID int64, deadline time.Time, alsoOriginal bool) error {
	ts := deadline.UTC().Unix()
	if alsoOriginal {
		return r.updateCase(ctx, caseID, `deadline_date = ?, original_deadline = ?`, ts, ts)
	}
	return r.updateCase(ctx, caseID, `deadline_date = ?`, ts)
}

// UpdateRepeat changes the recurrence rule; dropping recurrence snaps the
// deadline back to the original one.
func (r *SQLiteRepo) UpdateRepeat(ctx context.Context, caseID int64, rep domain.Repeat) error {
	if rep == domain.RepeatNone {
		return r.updateCase(ctx, caseID,
			`repeat = '', deadline_date = original_deadline`)
	}
	return r.updateCase(ctx, caseID, `repeat = ?`, string(rep))
}

// RestoreCase reactivates a finished case at a new deadline.
func (r *SQLiteRepo) RestoreCase(ctx context.Context, caseID int64, deadline time.Time) error {
	ts := deadline.UTC().Unix()
	return r.updateCase(ctx, caseID,
		`is_finished = 0, deadline_date = ?, original_deadline = ?`, ts, ts)
}

// DeleteCase removes the case and, in the same transaction, all its files.
func (r *SQLiteRepo) DeleteCase(ctx context.Context, caseID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE case_id = ?`, caseID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, caseID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// --- files ---

// AddFiles inserts attachment rows for a case.
func (r *SQLiteRepo) AddFiles(ctx context.Context, caseID int64, files []domain.File) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertFiles(ctx, tx, caseID, files); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceFiles swaps the full attachment set of a case.
func (r *SQLiteRepo) ReplaceFiles(ctx context.Context, caseID int64, files []domain.File) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE case_id = ?`, caseID); err != nil {
		return err
	}
	if err := insertFiles(ctx, tx, caseID, files); err != nil {
		return err
	}
	return tx.Commit()
}

func insertFiles(ctx context.Context, tx *sql.Tx, caseID int64, files []domain.File) error {
	for _, f := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (case_id, file_name, file_url) VALUES (?, ?, ?)`,
			caseID, f.FileName, f.FileURL,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListFiles returns the attachments of a case.
func (r *SQLiteRepo) ListFiles(ctx context.Context, caseID int64) ([]domain.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, case_id, file_name, file_url FROM files WHERE case_id = ? ORDER BY id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.File
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.ID, &f.CaseID, &f.FileName, &f.FileURL); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// GetFile returns an attachment by id or ErrNotFound.
func (r *SQLiteRepo) GetFile(ctx context.Context, id int64) (*domain.File, error) {
	var f domain.File
	err := r.db.QueryRowContext(ctx,
		`SELECT id, case_id, file_name, file_url FROM files WHERE id = ?`, id,
	).Scan(&f.ID, &f.CaseID, &f.FileName, &f.FileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFilesByName removes rows with the given display name across the
// user's cases and returns the number of rows removed.
func (r *SQLiteRepo) DeleteFilesByName(ctx context.Context, userID, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM files
		WHERE file_name = ?
		  AND case_id IN (SELECT id FROM cases WHERE user_id = ?)`,
		name, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
