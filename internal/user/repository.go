package user

import (
	"context"
	"database/sql"
	"errors"

	"bijouterie-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repository interface {
	Create(ctx context.Context, email, passwordHash, fullName string) (Profile, error)
	FindByEmail(ctx context.Context, email string) (Profile, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) error
	GetRole(ctx context.Context, userID string) (string, error)
	ListUsers(ctx context.Context) ([]AdminUser, error)
	ReplaceRole(ctx context.Context, userID, role string) error
	CountUsers(ctx context.Context) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Create inserts a profile together with its default client role.
func (r *repository) Create(ctx context.Context, email, passwordHash, fullName string) (Profile, error) {
	log := logger.FromCtx(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, err
	}
	defer tx.Rollback()

	var p Profile
	err = tx.QueryRowContext(ctx, `
		INSERT INTO profiles (id, email, full_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, full_name, password_hash, created_at
	`, uuid.NewString(), email, fullName, passwordHash).
		Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return Profile{}, ErrEmailExists
		}
		log.Error("db: failed to insert profile", zap.String("email", email), zap.Error(err))
		return Profile{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
	`, p.ID, RoleClient)
	if err != nil {
		log.Error("db: failed to insert default role", zap.String("user_id", p.ID), zap.Error(err))
		return Profile{}, err
	}

	return p, tx.Commit()
}

func (r *repository) FindByEmail(ctx context.Context, email string) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, phone, password_hash, created_at
		FROM profiles WHERE email = $1
	`, email).Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (r *repository) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, phone, created_at
		FROM profiles WHERE id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (r *repository) UpdateProfile(ctx context.Context, params UpdateProfileParams) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET full_name = $1, phone = $2, updated_at = NOW()
		WHERE id = $3
	`, params.FullName, params.Phone, params.UserID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// GetRole returns the user's role, defaulting to client when no row exists.
func (r *repository) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT role FROM user_roles WHERE user_id = $1 LIMIT 1
	`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return string(RoleClient), nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

func (r *repository) ListUsers(ctx context.Context) ([]AdminUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.email, p.full_name, p.phone, p.created_at,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM profiles p
		LEFT JOIN user_roles ur ON ur.user_id = p.id
		GROUP BY p.id, p.email, p.full_name, p.phone, p.created_at
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []AdminUser
	for rows.Next() {
		var u AdminUser
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.CreatedAt, pq.Array(&u.Roles)); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ReplaceRole removes existing role rows and inserts the new one, mirroring
// the back-office "change role" action.
func (r *repository) ReplaceRole(ctx context.Context, userID, role string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, role); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}
