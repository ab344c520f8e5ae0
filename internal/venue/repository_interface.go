package venue

import "context"

type Repository interface {
	Create(ctx context.Context, req CreateVenueRequest) (*Venue, error)
	ListAvailable(ctx context.Context, city string) ([]Venue, error)
	GetByID(ctx context.Context, id int) (*Venue, error)
	Update(ctx context.Context, id int, req UpdateVenueRequest) (*Venue, error)
	Exists(ctx context.Context, id int) (bool, error)
}
