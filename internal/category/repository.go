package category

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrCategoryNotFound = errors.New("category not found")

type Repository interface {
	GetAll(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, name string, description *string) (Category, error)
	Update(ctx context.Context, id, name string, description *string) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetAll(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) Create(ctx context.Context, name string, description *string) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, created_at
	`, uuid.NewString(), name, description).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	return c, err
}

func (r *repository) Update(ctx context.Context, id, name string, description *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $1, description = $2 WHERE id = $3
	`, name, description, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
