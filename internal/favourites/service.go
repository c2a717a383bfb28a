package favourites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/randytsao24/parkedup/internal/carpark"
	"github.com/randytsao24/parkedup/internal/models"
)

var (
	// ErrInvalidUser is returned when the user identifier is not an email address
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidCarpark is returned for a blank carpark number
	ErrInvalidCarpark = errors.New("invalid carpark number")
)

// CarparkLookup resolves a carpark number against current data
type CarparkLookup interface {
	Get(ctx context.Context, number string) (models.Carpark, error)
}

// Service validates favourite operations and resolves them to carparks
type Service struct {
	store    Store
	carparks CarparkLookup
	validate *validator.Validate
}

// NewService creates a favourites service over store
func NewService(store Store, carparks CarparkLookup) *Service {
	return &Service{
		store:    store,
		carparks: carparks,
		validate: validator.New(),
	}
}

func (s *Service) checkUser(user string) (string, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if err := s.validate.Var(user, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return user, nil
}

func checkNumber(number string) (string, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return "", ErrInvalidCarpark
	}
	return number, nil
}

func (s *Service) checkArgs(user, number string) (string, string, error) {
	user, err := s.checkUser(user)
	if err != nil {
		return "", "", err
	}
	number, err = checkNumber(number)
	if err != nil {
		return "", "", err
	}
	return user, number, nil
}

// Add saves number for user. The carpark must exist in the current data.
func (s *Service) Add(ctx context.Context, user, number string) error {
	user, number, err := s.checkArgs(user, number)
	if err != nil {
		return err
	}
	if _, err := s.carparks.Get(ctx, number); err != nil {
		return err
	}
	return s.store.Add(ctx, user, number)
}

// Remove deletes number from user's favourites; removing an absent number is not an error
func (s *Service) Remove(ctx context.Context, user, number string) error {
	user, number, err := s.checkArgs(user, number)
	if err != nil {
		return err
	}
	return s.store.Remove(ctx, user, number)
}

// Toggle adds number when absent and removes it when present. It reports
// whether number is a favourite afterwards.
func (s *Service) Toggle(ctx context.Context, user, number string) (bool, error) {
	user, number, err := s.checkArgs(user, number)
	if err != nil {
		return false, err
	}

	present, err := s.store.Contains(ctx, user, number)
	if err != nil {
		return false, err
	}
	if present {
		return false, s.store.Remove(ctx, user, number)
	}

	if _, err := s.carparks.Get(ctx, number); err != nil {
		return false, err
	}
	return true, s.store.Add(ctx, user, number)
}

// List returns user's favourite numbers, sorted
func (s *Service) List(ctx context.Context, user string) ([]string, error) {
	user, err := s.checkUser(user)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, user)
}

// Clear removes all of user's favourites
func (s *Service) Clear(ctx context.Context, user string) error {
	user, err := s.checkUser(user)
	if err != nil {
		return err
	}
	return s.store.Clear(ctx, user)
}

// Carparks resolves user's favourites to current carpark records. Numbers no
// longer present in the data are skipped.
func (s *Service) Carparks(ctx context.Context, user string) ([]models.Carpark, error) {
	numbers, err := s.List(ctx, user)
	if err != nil {
		return nil, err
	}

	carparks := make([]models.Carpark, 0, len(numbers))
	for _, number := range numbers {
		cp, err := s.carparks.Get(ctx, number)
		if errors.Is(err, carpark.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		carparks = append(carparks, cp)
	}
	return carparks, nil
}
