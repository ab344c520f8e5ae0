package venue

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var venueRowColumns = []string{"id", "name", "description", "address", "city", "state", "capacity",
	"price_per_hour_cents", "price_per_day_cents", "image_url", "amenities", "is_available", "created_at", "updated_at"}

func setupVenueMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), mock
}

func hallRow(rows *sqlmock.Rows, id int, name, city string, perDay any) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, name, "Banquet hall", "12 MG Road", city, "Karnataka", 300,
		int64(150000), perDay, "", "{parking,\"air conditioning\"}", true, now, now)
}

func TestCreateVenue(t *testing.T) {
	repo, mock := setupVenueMock(t)
	perDay := int64(2500000)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO venues")).
		WithArgs("Shubh Mangal Hall", "", "12 MG Road", "Bengaluru", "Karnataka", 300,
			int64(150000), perDay, "", sqlmock.AnyArg()).
		WillReturnRows(hallRow(sqlmock.NewRows(venueRowColumns), 1, "Shubh Mangal Hall", "Bengaluru", perDay))

	v, err := repo.Create(context.Background(), CreateVenueRequest{
		Name:              "Shubh Mangal Hall",
		Address:           "12 MG Road",
		City:              "Bengaluru",
		State:             "Karnataka",
		Capacity:          300,
		PricePerHourCents: 150000,
		PricePerDayCents:  &perDay,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.ID)
	require.NotNil(t, v.PricePerDayCents)
	assert.Equal(t, perDay, *v.PricePerDayCents)
	assert.Equal(t, []string{"parking", "air conditioning"}, []string(v.Amenities))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailable(t *testing.T) {
	repo, mock := setupVenueMock(t)

	rows := sqlmock.NewRows(venueRowColumns)
	hallRow(rows, 2, "Kalyan Mandapam", "Chennai", nil)
	hallRow(rows, 1, "Shubh Mangal Hall", "Chennai", int64(2500000))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_available = TRUE AND LOWER(city) = LOWER($1) ORDER BY created_at DESC")).
		WithArgs("Chennai").
		WillReturnRows(rows)

	venues, err := repo.ListAvailable(context.Background(), " Chennai ")
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, 2, venues[0].ID)
	assert.Nil(t, venues[0].PricePerDayCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailable_NoFilter(t *testing.T) {
	repo, mock := setupVenueMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_available = TRUE ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(venueRowColumns))

	venues, err := repo.ListAvailable(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, venues)
	assert.Empty(t, venues)
}

func TestGetByID(t *testing.T) {
	repo, mock := setupVenueMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM venues WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(hallRow(sqlmock.NewRows(venueRowColumns), 1, "Shubh Mangal Hall", "Pune", nil))

	v, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Pune", v.City)

	mock.ExpectQuery(regexp.QuoteMeta("FROM venues WHERE id = $1")).
		WithArgs(404).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

func TestUpdateVenue(t *testing.T) {
	repo, mock := setupVenueMock(t)
	closed := false

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE venues")).
		WithArgs(1, nil, nil, nil, nil, nil, nil, nil, false).
		WillReturnRows(hallRow(sqlmock.NewRows(venueRowColumns), 1, "Shubh Mangal Hall", "Pune", nil))

	v, err := repo.Update(context.Background(), 1, UpdateVenueRequest{IsAvailable: &closed})
	require.NoError(t, err)
	assert.Equal(t, 1, v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVenue_NotFound(t *testing.T) {
	repo, mock := setupVenueMock(t)
	name := "Renamed"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE venues")).WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), 9, UpdateVenueRequest{Name: &name})
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

func TestExists(t *testing.T) {
	repo, mock := setupVenueMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM venues WHERE id = $1)")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, ok)
}
