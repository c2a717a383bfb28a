package handlers

import (
	"context"

	"github.com/randytsao24/parkedup/internal/carpark"
	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
)

// CarparkProvider abstracts the carpark snapshot service for testability.
type CarparkProvider interface {
	Search(ctx context.Context, c carpark.Criteria) ([]models.RankedCarpark, error)
	Get(ctx context.Context, number string) (models.Carpark, error)
	Closest(ctx context.Context, p geo.Point, limit int) ([]models.RankedCarpark, error)
	Within(ctx context.Context, box geo.BoundingBox) ([]models.Carpark, error)
}

// StatusProvider reports snapshot freshness without triggering a refresh.
type StatusProvider interface {
	Status() (carpark.Status, bool)
}

// FavouritesProvider abstracts the per-user favourites service.
type FavouritesProvider interface {
	Add(ctx context.Context, user, number string) error
	Remove(ctx context.Context, user, number string) error
	Toggle(ctx context.Context, user, number string) (bool, error)
	List(ctx context.Context, user string) ([]string, error)
	Clear(ctx context.Context, user string) error
	Carparks(ctx context.Context, user string) ([]models.Carpark, error)
}
