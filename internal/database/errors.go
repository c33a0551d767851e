package database

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCarUnavailable is returned when the conditional reserve write
	// affects zero rows: the car is already held by another booking.
	ErrCarUnavailable = errors.New("car is not available")

	// ErrPackageOverlap is returned when a package's date range collides
	// with an existing active package for the same car.
	ErrPackageOverlap = errors.New("package dates overlap an existing package for this car")

	// ErrDuplicateLocation is returned on a location name collision.
	ErrDuplicateLocation = errors.New("location name already exists")
)
