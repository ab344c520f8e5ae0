package venue

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrNoChanges     = errors.New("no fields to update")
)

type Venue struct {
	ID                int            `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Description       string         `db:"description" json:"description"`
	Address           string         `db:"address" json:"address"`
	City              string         `db:"city" json:"city"`
	State             string         `db:"state" json:"state"`
	Capacity          int            `db:"capacity" json:"capacity"`
	PricePerHourCents int64          `db:"price_per_hour_cents" json:"price_per_hour_cents"`
	PricePerDayCents  *int64         `db:"price_per_day_cents" json:"price_per_day_cents,omitempty"`
	ImageURL          string         `db:"image_url" json:"image_url"`
	Amenities         pq.StringArray `db:"amenities" json:"amenities"`
	IsAvailable       bool           `db:"is_available" json:"is_available"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

type CreateVenueRequest struct {
	Name              string   `json:"name" binding:"required,max=200"`
	Description       string   `json:"description"`
	Address           string   `json:"address" binding:"required"`
	City              string   `json:"city" binding:"required"`
	State             string   `json:"state" binding:"required"`
	Capacity          int      `json:"capacity" binding:"required,min=1"`
	PricePerHourCents int64    `json:"price_per_hour_cents" binding:"min=0"`
	PricePerDayCents  *int64   `json:"price_per_day_cents" binding:"omitempty,min=0"`
	ImageURL          string   `json:"image_url" binding:"omitempty,url"`
	Amenities         []string `json:"amenities"`
}

type UpdateVenueRequest struct {
	Name              *string   `json:"name" binding:"omitempty,min=1,max=200"`
	Description       *string   `json:"description"`
	Capacity          *int      `json:"capacity" binding:"omitempty,min=1"`
	PricePerHourCents *int64    `json:"price_per_hour_cents" binding:"omitempty,min=0"`
	PricePerDayCents  *int64    `json:"price_per_day_cents" binding:"omitempty,min=0"`
	ImageURL          *string   `json:"image_url" binding:"omitempty,url"`
	Amenities         *[]string `json:"amenities"`
	IsAvailable       *bool     `json:"is_available"`
}

func (r UpdateVenueRequest) empty() bool {
	return r.Name == nil && r.Description == nil && r.Capacity == nil &&
		r.PricePerHourCents == nil && r.PricePerDayCents == nil &&
		r.ImageURL == nil && r.Amenities == nil && r.IsAvailable == nil
}
