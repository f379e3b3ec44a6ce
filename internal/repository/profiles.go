package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
)

const addressColumns = `id, profile_id, country, region, city, street, zip_code, is_default, inactive, created_at`

func scanAddress(row rowScanner) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID,
		&a.ProfileID,
		&a.Country,
		&a.Region,
		&a.City,
		&a.Street,
		&a.ZipCode,
		&a.Default,
		&a.Inactive,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetProfileByUser loads the profile with its active addresses, default first.
func (q *Queries) GetProfileByUser(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, phone_number, created_at FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.PhoneNumber, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile by user id: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE profile_id = $1 AND NOT inactive
		 ORDER BY is_default DESC, id`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		p.Addresses = append(p.Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return &p, nil
}

func (q *Queries) CreateProfile(ctx context.Context, p *domain.Profile) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, phone_number, created_at) VALUES ($1, $2, NOW())
		 RETURNING id, created_at`,
		p.UserID, p.PhoneNumber,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (q *Queries) UpdateProfilePhone(ctx context.Context, userID int64, phone string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE profiles SET phone_number = $2 WHERE user_id = $1`, userID, phone)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows affected: %w", err)
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (q *Queries) GetAddress(ctx context.Context, id int64) (*domain.Address, error) {
	a, err := scanAddress(q.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query address by id: %w", err)
	}
	return a, nil
}

func (q *Queries) CreateAddress(ctx context.Context, a *domain.Address) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO addresses (profile_id, country, region, city, street, zip_code, is_default, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING id, inactive, created_at`,
		a.ProfileID, a.Country, a.Region, a.City, a.Street, a.ZipCode, a.Default,
	).Scan(&a.ID, &a.Inactive, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (q *Queries) ClearDefaultAddress(ctx context.Context, profileID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE WHERE profile_id = $1 AND is_default`, profileID)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

// AddressInUse reports whether any order was shipped to the address.
func (q *Queries) AddressInUse(ctx context.Context, id int64) (bool, error) {
	var inUse bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE address_id = $1)`, id).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("query address usage: %w", err)
	}
	return inUse, nil
}

func (q *Queries) DeactivateAddress(ctx context.Context, id int64) error {
	return q.execAddress(ctx, `UPDATE addresses SET inactive = TRUE, is_default = FALSE WHERE id = $1`, id)
}

func (q *Queries) DeleteAddress(ctx context.Context, id int64) error {
	return q.execAddress(ctx, `DELETE FROM addresses WHERE id = $1`, id)
}

func (q *Queries) execAddress(ctx context.Context, query string, id int64) error {
	res, err := q.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("modify address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("modify address rows affected: %w", err)
	}
	if n == 0 {
		return ErrAddressNotFound
	}
	return nil
}
