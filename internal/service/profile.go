package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

type ProfileService struct {
	store repository.Store
	log   *slog.Logger
}

func NewProfileService(store repository.Store, log *slog.Logger) *ProfileService {
	return &ProfileService{store: store, log: log.With("component", "profile")}
}

// GetProfile returns the caller's profile with its active addresses,
// default first.
func (s *ProfileService) GetProfile(ctx context.Context, caller domain.Caller) (*domain.Profile, error) {
	p, err := s.store.GetProfileByUser(ctx, caller.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, notFound("profile of user %d", caller.ID)
	}
	return p, err
}

func (s *ProfileService) CreateProfile(ctx context.Context, caller domain.Caller, phone string) (*domain.Profile, error) {
	phone = strings.TrimSpace(phone)
	if err := validatePhone(phone); err != nil {
		return nil, err
	}

	p := &domain.Profile{UserID: caller.ID, PhoneNumber: phone}
	err := s.store.CreateProfile(ctx, p)
	if errors.Is(err, repository.ErrProfileExists) {
		return nil, NewFieldError("error", "You already have your own profile.")
	}
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "profile created", "user_id", caller.ID, "profile_id", p.ID)
	return p, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, caller domain.Caller, phone string) (*domain.Profile, error) {
	phone = strings.TrimSpace(phone)
	if err := validatePhone(phone); err != nil {
		return nil, err
	}

	err := s.store.UpdateProfilePhone(ctx, caller.ID, phone)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, notFound("profile of user %d", caller.ID)
	}
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, caller)
}

func (s *ProfileService) ListAddresses(ctx context.Context, caller domain.Caller) ([]*domain.Address, error) {
	p, err := s.GetProfile(ctx, caller)
	if err != nil {
		return nil, err
	}
	return p.Addresses, nil
}

// CreateAddress stores a new address. The first address of a profile always
// becomes the default; a new default replaces the old one.
func (s *ProfileService) CreateAddress(ctx context.Context, caller domain.Caller, a *domain.Address) error {
	if err := validateAddress(a); err != nil {
		return err
	}

	p, err := s.store.GetProfileByUser(ctx, caller.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}

	a.ProfileID = p.ID
	if len(p.Addresses) == 0 {
		a.Default = true
	}

	return s.store.WithTx(ctx, func(q repository.Querier) error {
		if a.Default {
			if err := q.ClearDefaultAddress(ctx, p.ID); err != nil {
				return err
			}
		}
		return q.CreateAddress(ctx, a)
	})
}

// DeleteAddress hard-deletes an unused address. Addresses referenced by an
// order are only marked inactive so order history keeps them.
func (s *ProfileService) DeleteAddress(ctx context.Context, caller domain.Caller, id int64) error {
	p, err := s.store.GetProfileByUser(ctx, caller.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return notFound("address %d", id)
	}
	if err != nil {
		return err
	}

	a, err := s.store.GetAddress(ctx, id)
	if errors.Is(err, repository.ErrAddressNotFound) || (err == nil && (a.ProfileID != p.ID || a.Inactive)) {
		return notFound("address %d", id)
	}
	if err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(q repository.Querier) error {
		inUse, err := q.AddressInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			s.log.InfoContext(ctx, "address deactivated", "address_id", id)
			return q.DeactivateAddress(ctx, id)
		}
		return q.DeleteAddress(ctx, id)
	})
}

func validatePhone(phone string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return NewFieldError("phone_number", "Enter a valid phone number.")
	}
	return nil
}

func validateAddress(a *domain.Address) error {
	fields := map[string]string{}
	required := map[string]string{
		"country":  a.Country,
		"city":     a.City,
		"street":   a.Street,
		"zip_code": a.ZipCode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[field] = "This field may not be blank."
		}
	}
	if len(fields) > 0 {
		return &FieldError{Fields: fields}
	}
	return nil
}
