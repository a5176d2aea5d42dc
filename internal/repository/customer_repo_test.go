package repository

import (
	"context"
	"testing"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByContactPriority(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCustomerRepo(db)

	withEmail := &model.OfflineCustomer{Name: "Dee", Email: "Dee@x.com", Phone: "111"}
	withPhone := &model.OfflineCustomer{Name: "Pat", Phone: "222"}
	nameOnly := &model.OfflineCustomer{Name: "Walk In"}
	for _, c := range []*model.OfflineCustomer{withEmail, withPhone, nameOnly} {
		require.NoError(t, repo.Create(db, c))
	}

	found, err := repo.FindByContact(db, " dee@X.com ", "999", "")
	require.NoError(t, err)
	assert.Equal(t, withEmail.ID, found.ID)

	found, err = repo.FindByContact(db, "", "222", "Someone")
	require.NoError(t, err)
	assert.Equal(t, withPhone.ID, found.ID)

	found, err = repo.FindByContact(db, "", "", "walk in")
	require.NoError(t, err)
	assert.Equal(t, nameOnly.ID, found.ID)

	// a name never matches a customer who left contact details
	_, err = repo.FindByContact(db, "", "", "Dee")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByContact(db, "", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerTotals(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCustomerRepo(db)
	ctx := context.Background()

	c := &model.OfflineCustomer{Name: "Dee"}
	require.NoError(t, repo.Create(db, c))

	require.NoError(t, repo.AddToTotal(db, c.ID, 1180))
	require.NoError(t, repo.AddToTotal(db, c.ID, 2360))
	require.NoError(t, repo.AddToTotal(db, c.ID, -1180))

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2360), stored.TotalSales)

	require.NoError(t, repo.SetTotal(db, c.ID, 0))
	stored, err = repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.TotalSales)

	assert.ErrorIs(t, repo.AddToTotal(db, uuid.New(), 1), ErrNotFound)
	assert.ErrorIs(t, repo.SetTotal(db, uuid.New(), 1), ErrNotFound)
	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOrCreateReusesContactKey(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCustomerRepo(db)

	first, err := repo.FindOrCreate(db, &model.OfflineCustomer{Name: "Dee", Email: "Dee@x.com"})
	require.NoError(t, err)

	again, err := repo.FindOrCreate(db, &model.OfflineCustomer{Name: "Deepa", Email: "dee@X.com", Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Dee", again.Name)

	other, err := repo.FindOrCreate(db, &model.OfflineCustomer{Name: "Dee"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "a bare name is a different buyer")

	var count int64
	require.NoError(t, db.Model(&model.OfflineCustomer{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	_, err = repo.FindOrCreate(db, &model.OfflineCustomer{})
	assert.ErrorIs(t, err, ErrNoContact)
	assert.Error(t, repo.Create(db, &model.OfflineCustomer{Name: "Pat", Email: "DEE@x.com"}), "contact key is unique")
}
