package store

import (
	"context"
	"database/sql"

	"storefront/internal/models"
)

// UserByEmail retrieves a user by email
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByID retrieves a user by ID
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// InsertUser creates a user and fills its ID and CreatedAt. A unique
// violation on email is reported as ErrDuplicate so callers can treat a
// racing creation as "someone else got there first".
func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (full_name, email, password, phone, address, google_id, avatar, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		user.FullName, user.Email, user.Password, user.Phone, user.Address,
		user.GoogleID, user.Avatar, user.Role, user.Status).
		Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateUserAvatar backfills the avatar field
func (s *Store) UpdateUserAvatar(ctx context.Context, userID int64, avatar string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET avatar = $1 WHERE id = $2", avatar, userID)
	return err
}

// UpdateUserProfile partially updates profile fields. The credential is
// replaced only when passwordHash is non-nil and must already be the
// output of the hashing collaborator.
func (s *Store) UpdateUserProfile(ctx context.Context, userID int64, fullName, phone, address string, passwordHash *string) error {
	var res sql.Result
	var err error
	if passwordHash != nil {
		res, err = s.db.ExecContext(ctx,
			"UPDATE users SET full_name = $1, phone = $2, address = $3, password = $4 WHERE id = $5",
			fullName, phone, address, *passwordHash, userID)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE users SET full_name = $1, phone = $2, address = $3 WHERE id = $4",
			fullName, phone, address, userID)
	}
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

// SetUserStatus switches an account between active and locked
func (s *Store) SetUserStatus(ctx context.Context, userID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET status = $1 WHERE id = $2", status, userID)
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
