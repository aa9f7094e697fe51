package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodRescueCoordination/models"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts a new user with the given username and role.
// Returns the created User with its generated ID.
func (r *UserRepository) Create(ctx context.Context, username string, role models.Role) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if role == "" {
		role = models.RoleBuyer
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO users (username, role) VALUES (?, ?)`, username, string(role))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Username: username, Role: role, IsActive: true, AccountStatus: models.AccountActive}, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT id, username, role, is_active, lat, lng, trust_score, account_status FROM users WHERE id = ?`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT id, username, role, is_active, lat, lng, trust_score, account_status FROM users WHERE username = ?`, username))
}

// SetLocation updates the user's last known coordinates.
func (r *UserRepository) SetLocation(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	return err
}

// SetActive flips the active flag on a user.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
	return err
}

// SetTrust persists a recomputed trust score and the account status derived
// from it. The reputation engine is the sole caller.
func (r *UserRepository) SetTrust(ctx context.Context, id int64, score int64, accountStatus models.AccountStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET trust_score = ?, account_status = ? WHERE id = ?`, score, string(accountStatus), id)
	return err
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var role, accountStatus string
	var trust sql.NullInt64
	err := row.Scan(&u.ID, &u.Username, &role, &u.IsActive, &u.Lat, &u.Lng, &trust, &accountStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = models.Role(role)
	u.AccountStatus = models.AccountStatus(accountStatus)
	if trust.Valid {
		v := trust.Int64
		u.TrustScore = &v
	}
	return &u, nil
}
