package database

import (
	"context"
	"testing"
	"time"

	"carbooker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestCreatePackage_RejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	car := seedCar(t, db)
	seedPackage(t, db, car.ID, day(1), day(5))

	// Jan 3-8 intersects Jan 1-5.
	overlapping := seedLocationPair(t, db, "a")
	pkg := &models.Package{
		Name:             "Clashing",
		PickupLocationID: overlapping[0].ID,
		DropLocationID:   overlapping[1].ID,
		CarID:            car.ID,
		BasePrice:        300,
		StartDate:        day(3),
		EndDate:          day(8),
		Available:        true,
	}
	err := db.CreatePackage(ctx, pkg)
	assert.ErrorIs(t, err, ErrPackageOverlap)

	// Jan 6-8 starts after Jan 1-5 ends.
	pkg.StartDate = day(6)
	pkg.EndDate = day(8)
	assert.NoError(t, db.CreatePackage(ctx, pkg))
}

func TestCreatePackage_BoundaryTouchRejected(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	car := seedCar(t, db)
	seedPackage(t, db, car.ID, day(1), day(5))

	// Intervals are inclusive on both ends, so sharing Jan 5 is a clash.
	locs := seedLocationPair(t, db, "b")
	pkg := &models.Package{
		Name:             "Touching",
		PickupLocationID: locs[0].ID,
		DropLocationID:   locs[1].ID,
		CarID:            car.ID,
		BasePrice:        300,
		StartDate:        day(5),
		EndDate:          day(9),
		Available:        true,
	}
	err := db.CreatePackage(ctx, pkg)
	assert.ErrorIs(t, err, ErrPackageOverlap)
}

func TestCreatePackage_DifferentCarsDoNotClash(t *testing.T) {
	db := setupTestDB(t)

	carA := seedCar(t, db)
	carB := seedCar(t, db)
	seedPackage(t, db, carA.ID, day(1), day(5))
	seedPackage(t, db, carB.ID, day(1), day(5))
}

func TestCreatePackage_InactiveIgnored(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	car := seedCar(t, db)
	existing := seedPackage(t, db, car.ID, day(1), day(5))
	require.NoError(t, db.DeactivatePackage(ctx, existing.ID))

	// A deactivated package does not block the window.
	seedPackage(t, db, car.ID, day(2), day(4))
}

func TestUpdatePackageDates_ExcludesSelf(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	car := seedCar(t, db)
	pkg := seedPackage(t, db, car.ID, day(1), day(5))

	// Extending against itself is allowed.
	require.NoError(t, db.UpdatePackageDates(ctx, pkg.ID, day(1), day(7)))

	got, err := db.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, day(7).Unix(), got.EndDate.Unix())

	// But not into a sibling's window.
	seedPackage(t, db, car.ID, day(10), day(12))
	err = db.UpdatePackageDates(ctx, pkg.ID, day(1), day(11))
	assert.ErrorIs(t, err, ErrPackageOverlap)
}

func TestListPackages_FilterByCar(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	carA := seedCar(t, db)
	carB := seedCar(t, db)
	seedPackage(t, db, carA.ID, day(1), day(5))
	seedPackage(t, db, carA.ID, day(10), day(15))
	seedPackage(t, db, carB.ID, day(1), day(5))

	pkgs, meta, err := db.ListPackages(ctx, models.PageParams{}, carA.ID)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)
	assert.Equal(t, int64(2), meta.Total)
}

func seedLocationPair(t *testing.T, db *DB, tag string) [2]*models.Location {
	t.Helper()
	return [2]*models.Location{
		seedLocation(t, db, "pair-pickup-"+tag),
		seedLocation(t, db, "pair-drop-"+tag),
	}
}
