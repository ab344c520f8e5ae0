package venue

import (
	"context"
	"errors"
	"strings"

	"karyalay/internal/logger"
)

type Service interface {
	CreateVenue(ctx context.Context, req CreateVenueRequest) (*Venue, error)
	ListVenues(ctx context.Context, city string) ([]Venue, error)
	GetVenue(ctx context.Context, id int) (*Venue, error)
	UpdateVenue(ctx context.Context, id int, req UpdateVenueRequest) (*Venue, error)
	VenueExists(ctx context.Context, id int) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) CreateVenue(ctx context.Context, req CreateVenueRequest) (*Venue, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.City = strings.TrimSpace(req.City)

	v, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Info("venue created", "venue_id", v.ID, "city", v.City)
	return v, nil
}

func (s *service) ListVenues(ctx context.Context, city string) ([]Venue, error) {
	return s.repo.ListAvailable(ctx, city)
}

func (s *service) GetVenue(ctx context.Context, id int) (*Venue, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateVenue(ctx context.Context, id int, req UpdateVenueRequest) (*Venue, error) {
	if req.empty() {
		return nil, ErrNoChanges
	}
	return s.repo.Update(ctx, id, req)
}

func (s *service) VenueExists(ctx context.Context, id int) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// IsNotFound reports whether err means the venue does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVenueNotFound)
}
