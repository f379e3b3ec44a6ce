package domain

import "time"

type Profile struct {
	ID          int64
	UserID      int64
	PhoneNumber string
	Addresses   []*Address
	CreatedAt   time.Time
}

// Address is soft-deleted (Inactive) instead of removed while an order
// still points at it.
type Address struct {
	ID        int64
	ProfileID int64
	Country   string
	Region    string
	City      string
	Street    string
	ZipCode   string
	Default   bool
	Inactive  bool
	CreatedAt time.Time
}
