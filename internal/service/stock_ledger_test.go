package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"refurb-store-api/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserveNeverOversells(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "PX-7", 1000, 5)

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.db.Transaction(func(tx *gorm.DB) error {
				return f.ledger.Reserve(tx, admin, nil, []Reservation{{ProductID: p.ID, Quantity: 1}})
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, shortages)
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.Equal(t, int64(5), f.movementCount(t, p.ID, model.MovementOut))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.seedProduct(t, "A-1", 1000, 5)
	b := f.seedProduct(t, "B-1", 500, 0)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.ledger.Reserve(tx, admin, nil, []Reservation{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		})
	})

	require.ErrorIs(t, err, ErrInsufficientStock)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, b.ID, svcErr.ProductID)
	assert.Equal(t, 5, f.stock(t, a.ID))
	assert.Equal(t, int64(0), f.movementCount(t, a.ID, model.MovementOut))
}

func TestReserveMergesDuplicateProducts(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "M-1", 100, 3)

	// 2 + 2 exceeds stock even though each line fits
	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.ledger.Reserve(tx, admin, nil, []Reservation{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 2},
		})
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(t, p.ID))

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.ledger.Reserve(tx, admin, nil, []Reservation{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: 2},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.Equal(t, int64(1), f.movementCount(t, p.ID, model.MovementOut))
}

func TestReserveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Q-1", 100, 3)

	tests := []struct {
		name         string
		reservations []Reservation
		want         error
	}{
		{"empty", nil, ErrEmptyCart},
		{"zero quantity", []Reservation{{ProductID: p.ID, Quantity: 0}}, ErrInvalidQuantity},
		{"negative quantity", []Reservation{{ProductID: p.ID, Quantity: -1}}, ErrInvalidQuantity},
		{"unknown product", []Reservation{{ProductID: uuid.New(), Quantity: 1}}, ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.db.Transaction(func(tx *gorm.DB) error {
				return f.ledger.Reserve(tx, admin, nil, tt.reservations)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestCreditAddsStockAndMovement(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "C-1", 100, 2)

	updated, err := f.ledger.Credit(context.Background(), admin, p.ID, 4, "")
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Stock)

	var movement model.StockMovement
	require.NoError(t, f.db.Where("product_id = ?", p.ID).First(&movement).Error)
	assert.Equal(t, model.MovementIn, movement.Type)
	assert.Equal(t, 4, movement.Quantity)
	assert.Equal(t, "restock", movement.Note)

	assert.Equal(t, 1, f.events.count(EventStockUpdate))
	assert.Equal(t, 1, f.invalidated.calls)

	_, err = f.ledger.Credit(context.Background(), admin, p.ID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.ledger.Credit(context.Background(), admin, uuid.New(), 1, "")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
