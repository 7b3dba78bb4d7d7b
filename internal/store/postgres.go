package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, phone, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, user.Role, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, phone, role, created_at
		FROM users
		WHERE email=$1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, phone, role, created_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ── Categories ──

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := make([]Category, 0)
	for rows.Next() {
		var item Category
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCategory(ctx context.Context, categoryID string) (Category, error) {
	var item Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, icon FROM categories WHERE id=$1
	`, categoryID).Scan(&item.ID, &item.Name, &item.Description, &item.Icon)
	if err != nil {
		return Category{}, err
	}
	return item, nil
}

// ResetCategories replaces the whole taxonomy in one transaction so a reseed
// can never leave a partial or duplicated set behind.
func (s *PostgresStore) ResetCategories(ctx context.Context, categories []Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset categories: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for _, item := range categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, description, icon)
			VALUES ($1, $2, $3, $4)
		`, item.ID, item.Name, item.Description, item.Icon); err != nil {
			return fmt.Errorf("insert category %s: %w", item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset categories: %w", err)
	}
	return nil
}

// ── Issues ──

const issueColumns = `
	id, user_id, category_id, title, description, image, voice, voice_transcript,
	location_lat, location_long, address, status, expected_completion,
	actual_completion, vote_count, created_at, updated_at
`

func scanIssue(row interface{ Scan(...any) error }) (Issue, error) {
	var item Issue
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.CategoryID,
		&item.Title,
		&item.Description,
		&item.Image,
		&item.Voice,
		&item.VoiceTranscript,
		&item.LocationLat,
		&item.LocationLong,
		&item.Address,
		&item.Status,
		&item.ExpectedCompletion,
		&item.ActualCompletion,
		&item.VoteCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertIssue(ctx context.Context, item Issue) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (`+issueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		item.ID,
		item.UserID,
		item.CategoryID,
		item.Title,
		item.Description,
		item.Image,
		item.Voice,
		item.VoiceTranscript,
		item.LocationLat,
		item.LocationLong,
		item.Address,
		item.Status,
		item.ExpectedCompletion,
		item.ActualCompletion,
		item.VoteCount,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIssue(ctx context.Context, issueID string) (Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=$1`, issueID)
	return scanIssue(row)
}

func (s *PostgresStore) ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	where := ""
	args := []any{}
	argN := 1

	appendCond := func(cond string, vals ...any) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, vals...)
	}

	if filter.HasBounds {
		appendCond(fmt.Sprintf("location_lat BETWEEN $%d AND $%d", argN, argN+1), filter.LatMin, filter.LatMax)
		argN += 2
		appendCond(fmt.Sprintf("location_long BETWEEN $%d AND $%d", argN, argN+1), filter.LngMin, filter.LngMax)
		argN += 2
	}
	if filter.CategoryID != "" {
		appendCond(fmt.Sprintf("category_id = $%d", argN), filter.CategoryID)
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += where + fmt.Sprintf(" ORDER BY vote_count DESC, created_at DESC LIMIT $%d", argN)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	items := make([]Issue, 0)
	for rows.Next() {
		item, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return items, nil
}

// ── Votes ──

// ToggleVote removes an existing vote or records a new one, adjusting the
// denormalized counter in the same transaction. The UNIQUE (issue_id, user_id)
// constraint serializes concurrent toggles by the same user, so vote_count
// stays equal to the number of vote rows.
func (s *PostgresStore) ToggleVote(ctx context.Context, voteID, issueID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle vote: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE issue_id=$1 AND user_id=$2`, issueID, userID)
	if err != nil {
		return false, fmt.Errorf("delete vote: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete vote rows: %w", err)
	}

	voted := false
	if deleted > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE issues SET vote_count = vote_count - 1 WHERE id=$1 AND vote_count > 0
		`, issueID); err != nil {
			return false, fmt.Errorf("decrement vote count: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO votes (id, issue_id, user_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (issue_id, user_id) DO NOTHING
		`, voteID, issueID, userID)
		if err != nil {
			return false, fmt.Errorf("insert vote: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("insert vote rows: %w", err)
		}
		if inserted > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE issues SET vote_count = vote_count + 1 WHERE id=$1
			`, issueID); err != nil {
				return false, fmt.Errorf("increment vote count: %w", err)
			}
		}
		voted = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle vote: %w", err)
	}
	return voted, nil
}

func (s *PostgresStore) HasVote(ctx context.Context, issueID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM votes WHERE issue_id=$1 AND user_id=$2)
	`, issueID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// ── Comments ──

func (s *PostgresStore) InsertComment(ctx context.Context, item Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, issue_id, user_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.IssueID, item.UserID, item.Message, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, issueID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, user_id, message, created_at
		FROM comments
		WHERE issue_id=$1
		ORDER BY created_at DESC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.IssueID, &item.UserID, &item.Message, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// IsNotFound reports whether err is the store's missing-row sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
