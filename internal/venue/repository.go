package venue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"karyalay/internal/db"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const venueColumns = `id, name, description, address, city, state, capacity, price_per_hour_cents,
	price_per_day_cents, image_url, amenities, is_available, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req CreateVenueRequest) (*Venue, error) {
	query := `
		INSERT INTO venues (name, description, address, city, state, capacity,
			price_per_hour_cents, price_per_day_cents, image_url, amenities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + venueColumns

	amenities := req.Amenities
	if amenities == nil {
		amenities = []string{}
	}

	var v Venue
	err := r.db.GetContext(ctx, &v, query,
		req.Name, req.Description, req.Address, req.City, req.State, req.Capacity,
		req.PricePerHourCents, req.PricePerDayCents, req.ImageURL, pq.Array(amenities),
	)
	if err != nil {
		return nil, fmt.Errorf("insert venue: %w", err)
	}
	return &v, nil
}

// ListAvailable returns bookable venues, newest first. An empty city matches all.
func (r *repository) ListAvailable(ctx context.Context, city string) ([]Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE is_available = TRUE`
	args := []any{}
	if city = strings.TrimSpace(city); city != "" {
		query += ` AND LOWER(city) = LOWER($1)`
		args = append(args, city)
	}
	query += ` ORDER BY created_at DESC`

	venues := []Venue{}
	if err := r.db.SelectContext(ctx, &venues, query, args...); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	var v Venue
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) Update(ctx context.Context, id int, req UpdateVenueRequest) (*Venue, error) {
	query := `
		UPDATE venues
		SET name = COALESCE($2::text, name),
		    description = COALESCE($3::text, description),
		    capacity = COALESCE($4::integer, capacity),
		    price_per_hour_cents = COALESCE($5::bigint, price_per_hour_cents),
		    price_per_day_cents = COALESCE($6::bigint, price_per_day_cents),
		    image_url = COALESCE($7::text, image_url),
		    amenities = COALESCE($8::text[], amenities),
		    is_available = COALESCE($9::boolean, is_available),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + venueColumns

	var amenities any
	if req.Amenities != nil {
		amenities = pq.Array(*req.Amenities)
	}

	var v Venue
	err := r.db.GetContext(ctx, &v, query, id,
		req.Name, req.Description, req.Capacity, req.PricePerHourCents,
		req.PricePerDayCents, req.ImageURL, amenities, req.IsAvailable,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("update venue: %w", err)
	}
	return &v, nil
}

func (r *repository) Exists(ctx context.Context, id int) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM venues WHERE id = $1)`, id)
}
