package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = "id, student_id, username, full_name, pass_hash, lifetime, score, role"

// Create inserts a new user row. The database assigns the ID; score and
// lifetime start at zero and role defaults to ordinary unless the caller
// set one. A duplicate username or student ID surfaces as a Conflict.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleOrdinary
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (student_id, username, full_name, pass_hash, lifetime, score, role)
		 VALUES (?, ?, ?, ?, 0, 0, ?)`,
		user.StudentID,
		user.Username,
		user.FullName,
		user.PassHash,
		string(user.Role),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	user.Lifetime = 0
	user.Score = 0

	return nil
}

// GetByID retrieves a user by their internal ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		strconv.FormatInt(id, 10), id)
}

// GetByUsername retrieves a user by their unique username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`,
		username, username)
}

// GetByStudentID retrieves a user by their school-issued identifier.
func (db *DB) GetByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE student_id = ?`,
		studentID, studentID)
}

func (db *DB) getUser(ctx context.Context, query, label string, arg any) (*model.User, error) {
	var u model.User
	var role string

	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.StudentID,
		&u.Username,
		&u.FullName,
		&u.PassHash,
		&u.Lifetime,
		&u.Score,
		&role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", label)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", label, err)
	}

	u.Role = model.Role(role)
	return &u, nil
}

// Delete removes a user row. Missing users are a NotFound, so admin tools
// can tell a stale ID from a successful delete.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	if rows == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// AdjustPoints applies a signed point delta.
//
// The spend path is the subtle one. Checking the balance and then updating
// it in two statements is a time-of-check/time-of-use race: two concurrent
// spends can both read a sufficient balance that only one of them can
// afford. Folding the check into the UPDATE's WHERE clause makes SQLite's
// writer serialization do the arbitration — exactly one of two competing
// spends matches the row, the other affects zero rows and reports
// applied=false.
func (db *DB) AdjustPoints(ctx context.Context, id int64, delta int64) (bool, error) {
	if delta >= 0 {
		res, err := db.conn.ExecContext(ctx,
			`UPDATE users SET score = score + ?, lifetime = lifetime + ? WHERE id = ?`,
			delta, delta, id,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: crediting user %d: %w", id, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("sqlite: crediting user %d: %w", id, err)
		}
		if rows == 0 {
			return false, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return true, nil
	}

	// Conditional decrement: check and subtract in one statement.
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET score = score + ? WHERE id = ? AND score >= ?`,
		delta, id, -delta,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: debiting user %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: debiting user %d: %w", id, err)
	}
	if rows == 1 {
		return true, nil
	}

	// Zero rows: either the user doesn't exist or the balance was too low.
	// Only the existence check distinguishes the two.
	if _, err := db.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// RefundPoints credits score only. Used to undo a debit whose dependent
// write failed; the points were never earned, so lifetime stays put.
func (db *DB) RefundPoints(ctx context.Context, id int64, amount int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET score = score + ? WHERE id = ?`,
		amount, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: refunding user %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: refunding user %d: %w", id, err)
	}
	if rows == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// TopByLifetime returns the leaderboard ordered by cumulative lifetime
// points, highest first.
func (db *DB) TopByLifetime(ctx context.Context, limit int) ([]model.UserPoints, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, lifetime, score FROM users ORDER BY lifetime DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying leaderboard: %w", err)
	}
	defer rows.Close()

	board := []model.UserPoints{}
	for rows.Next() {
		var p model.UserPoints
		if err := rows.Scan(&p.ID, &p.Username, &p.Lifetime, &p.Score); err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard row: %w", err)
		}
		board = append(board, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating leaderboard: %w", err)
	}

	return board, nil
}
