package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// CategoryRepo manages testimony categories.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

const categoryColumns = `id, name, slug, COALESCE(description,''), icon, color, sort_order, active, created_at, updated_at`

func scanCategory(row rowScanner) (model.TestimonyCategory, error) {
	var c model.TestimonyCategory
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.Color, &c.Order, &c.Active,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (r *CategoryRepo) list(ctx context.Context, q string, args ...any) ([]model.TestimonyCategory, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TestimonyCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListActive returns active categories in display order.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]model.TestimonyCategory, error) {
	return r.list(ctx, "SELECT "+categoryColumns+" FROM testimony_categories WHERE active=1 ORDER BY sort_order, id")
}

// ListAll returns every category, active or not.
func (r *CategoryRepo) ListAll(ctx context.Context) ([]model.TestimonyCategory, error) {
	return r.list(ctx, "SELECT "+categoryColumns+" FROM testimony_categories ORDER BY sort_order, id")
}

// Find looks a category up by numeric id, or by slug when ref is not a number.
func (r *CategoryRepo) Find(ctx context.Context, ref string) (model.TestimonyCategory, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return r.Get(ctx, id)
	}
	return scanCategory(r.DB.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM testimony_categories WHERE slug=?", ref))
}

// Get fetches a category by id.
func (r *CategoryRepo) Get(ctx context.Context, id uint64) (model.TestimonyCategory, error) {
	return scanCategory(r.DB.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM testimony_categories WHERE id=?", id))
}

// GetMany fetches the categories with the given ids keyed by id.
func (r *CategoryRepo) GetMany(ctx context.Context, ids []uint64) (map[uint64]model.TestimonyCategory, error) {
	out := map[uint64]model.TestimonyCategory{}
	if len(ids) == 0 {
		return out, nil
	}
	ph, args := placeholders(ids)
	list, err := r.list(ctx, "SELECT "+categoryColumns+" FROM testimony_categories WHERE id IN ("+ph+")", args...)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

// Create stores c under the next id and at the end of the display order.
func (r *CategoryRepo) Create(ctx context.Context, c model.TestimonyCategory) (model.TestimonyCategory, error) {
	var maxID, maxOrder sql.NullInt64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT MAX(id), MAX(sort_order) FROM testimony_categories").Scan(&maxID, &maxOrder); err != nil {
		return c, fmt.Errorf("next category id: %w", err)
	}
	c.ID = uint64(maxID.Int64) + 1
	c.Order = int(maxOrder.Int64) + 1

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO testimony_categories (id, name, slug, description, icon, color, sort_order, active)
		 VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Slug, nullString(c.Description), c.Icon, c.Color, c.Order, c.Active)
	if err != nil {
		if isDuplicate(err) {
			return c, ErrDuplicate
		}
		return c, fmt.Errorf("insert category: %w", err)
	}
	return r.Get(ctx, c.ID)
}

// Toggle flips the active flag and returns the updated row.
func (r *CategoryRepo) Toggle(ctx context.Context, id uint64) (model.TestimonyCategory, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE testimony_categories SET active = NOT active WHERE id=?", id)
	if err != nil {
		return model.TestimonyCategory{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.TestimonyCategory{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a category.  Testimonies keep their dangling category_id.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM testimony_categories WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of categories.
func (r *CategoryRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM testimony_categories").Scan(&n)
	return n, err
}

// placeholders renders "?,?,?" for ids and the matching argument slice.
func placeholders(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	b := make([]byte, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
		args[i] = id
	}
	return string(b), args
}
