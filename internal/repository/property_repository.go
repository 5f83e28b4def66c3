package repository

// The property repository covers listing CRUD plus the gallery rows in
// 'property_images'. Writes that touch both tables run inside one
// transaction so that a listing and its gallery change together.

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/property-listings/internal/model"
)

const propertyColumns = `p.id, p.title, p.price, p.location, p.image, p.type, p.bedrooms, p.bathrooms,
	p.operation, p.description, p.furnished, p.construction_area, p.land_area, p.owner_id,
	p.created_at, p.updated_at`

// PropertyRepo encapsulates all database queries related to listings.
type PropertyRepo struct {
	db *sql.DB
}

// NewPropertyRepo constructs a PropertyRepo with the provided DB handle.
func NewPropertyRepo(db *sql.DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

func scanProperty(row rowScanner) (*model.Property, error) {
	var (
		p                 model.Property
		bedrooms, baths   sql.NullInt64
		constrArea, lArea sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Location, &p.Image, &p.Type, &bedrooms, &baths,
		&p.Operation, &p.Description, &p.Furnished, &constrArea, &lArea, &p.OwnerID,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if bedrooms.Valid {
		n := int(bedrooms.Int64)
		p.Bedrooms = &n
	}
	if baths.Valid {
		n := int(baths.Int64)
		p.Bathrooms = &n
	}
	if constrArea.Valid {
		p.ConstructionArea = &constrArea.String
	}
	if lArea.Valid {
		p.LandArea = &lArea.String
	}
	p.Images = []model.PropertyImage{}
	return &p, nil
}

// List returns the listings matching f, newest first, each with its gallery.
func (r *PropertyRepo) List(ctx context.Context, f model.PropertyFilter) ([]*model.Property, error) {
	where, args := filterClause(f)
	q := "SELECT " + propertyColumns + " FROM properties p WHERE " + where +
		" ORDER BY p.created_at DESC, p.id DESC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// filterClause turns f into a WHERE condition. Omitted filters add nothing.
func filterClause(f model.PropertyFilter) (string, []any) {
	where := []string{}
	args := []any{}
	if f.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Type != "" {
		where = append(where, "p.type = ?")
		args = append(args, f.Type)
	}
	if f.Operation != "" {
		where = append(where, "p.operation = ?")
		args = append(args, f.Operation)
	}
	if f.MinBedrooms != nil {
		where = append(where, "p.bedrooms >= ?")
		args = append(args, *f.MinBedrooms)
	}
	if f.MinBathrooms != nil {
		where = append(where, "p.bathrooms >= ?")
		args = append(args, *f.MinBathrooms)
	}
	if f.Location != "" {
		where = append(where, "LOWER(p.location) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Location)+"%")
	}
	if f.OwnerID != "" {
		where = append(where, "p.owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if len(where) == 0 {
		return "1=1", args
	}
	return strings.Join(where, " AND "), args
}

// attachImages loads the galleries of props with a single query.
func (r *PropertyRepo) attachImages(ctx context.Context, props []*model.Property) error {
	if len(props) == 0 {
		return nil
	}
	byID := make(map[string]*model.Property, len(props))
	ids := make([]any, 0, len(props))
	for _, p := range props {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	q := "SELECT id, url, property_id, position FROM property_images WHERE property_id IN (?" +
		strings.Repeat(",?", len(ids)-1) + ") ORDER BY property_id, position"
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var img model.PropertyImage
		if err := rows.Scan(&img.ID, &img.URL, &img.PropertyID, &img.Position); err != nil {
			return err
		}
		if p := byID[img.PropertyID]; p != nil {
			p.Images = append(p.Images, img)
		}
	}
	return rows.Err()
}

// GetByID fetches a listing and its gallery. It returns ErrNotFound if no
// row is found.
func (r *PropertyRepo) GetByID(ctx context.Context, id string) (*model.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx,
		"SELECT "+propertyColumns+" FROM properties p WHERE p.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.attachImages(ctx, []*model.Property{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts p and its gallery in one transaction. IDs and timestamps
// must already be set by the caller.
func (r *PropertyRepo) Create(ctx context.Context, p *model.Property) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO properties (id, title, price, location, image, type, bedrooms, bathrooms,
		 operation, description, furnished, construction_area, land_area, owner_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, p.Price, p.Location, p.Image, p.Type, p.Bedrooms, p.Bathrooms,
		p.Operation, p.Description, p.Furnished, p.ConstructionArea, p.LandArea, p.OwnerID,
		p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}
	return insertImages(ctx, tx, p.ID, p.Images)
}

// Update rewrites the listing fields of p. When replaceImages is true the
// stored gallery is deleted and p.Images inserted in its place; the gallery
// is never merged. Returns ErrNotFound when the listing does not exist.
func (r *PropertyRepo) Update(ctx context.Context, p *model.Property, replaceImages bool) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	// Lock the row so that a concurrent delete cannot interleave with the
	// gallery replacement.
	var one int
	if err = tx.QueryRowContext(ctx, "SELECT 1 FROM properties WHERE id = ? FOR UPDATE", p.ID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE properties SET title = ?, price = ?, location = ?, image = ?, type = ?, bedrooms = ?,
		 bathrooms = ?, operation = ?, description = ?, furnished = ?, construction_area = ?,
		 land_area = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Price, p.Location, p.Image, p.Type, p.Bedrooms, p.Bathrooms, p.Operation,
		p.Description, p.Furnished, p.ConstructionArea, p.LandArea, p.UpdatedAt, p.ID); err != nil {
		return err
	}
	if !replaceImages {
		return nil
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM property_images WHERE property_id = ?", p.ID); err != nil {
		return err
	}
	return insertImages(ctx, tx, p.ID, p.Images)
}

// Delete removes a listing together with its gallery inside a transaction.
// It returns ErrNotFound if the listing does not exist.
func (r *PropertyRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM property_images WHERE property_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

func insertImages(ctx context.Context, tx *sql.Tx, propertyID string, imgs []model.PropertyImage) error {
	if len(imgs) == 0 {
		return nil
	}
	q := "INSERT INTO property_images (id, url, property_id, position) VALUES (?,?,?,?)" +
		strings.Repeat(",(?,?,?,?)", len(imgs)-1)
	args := make([]any, 0, 4*len(imgs))
	for i, img := range imgs {
		args = append(args, img.ID, img.URL, propertyID, i)
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}
