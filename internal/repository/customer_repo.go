package repository

import (
	"context"
	"errors"
	"fmt"

	"refurb-store-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoContact = errors.New("customer has no name, email or phone")

type CustomerRepository interface {
	FindByContact(tx *gorm.DB, email, phone, name string) (*model.OfflineCustomer, error)
	Create(tx *gorm.DB, customer *model.OfflineCustomer) error
	FindOrCreate(tx *gorm.DB, customer *model.OfflineCustomer) (*model.OfflineCustomer, error)
	AddToTotal(tx *gorm.DB, id uuid.UUID, amount int64) error
	SetTotal(tx *gorm.DB, id uuid.UUID, total int64) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.OfflineCustomer, error)
	FindAllWithPurchases(ctx context.Context) ([]model.OfflineCustomer, error)
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func preloadPurchases(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Purchases", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Purchases.LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

// FindByContact looks a customer up by the de-duplication key the customer
// list uses: email, else phone, else name.
func (r *customerRepo) FindByContact(tx *gorm.DB, email, phone, name string) (*model.OfflineCustomer, error) {
	key := model.CustomerKey(email, phone, name)
	if key == "" {
		return nil, ErrNotFound
	}
	var customer model.OfflineCustomer
	if err := tx.First(&customer, "contact_key = ?", key).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (r *customerRepo) Create(tx *gorm.DB, customer *model.OfflineCustomer) error {
	customer.ContactKey = model.CustomerKey(customer.Email, customer.Phone, customer.Name)
	if customer.ContactKey == "" {
		return ErrNoContact
	}
	if err := tx.Create(customer).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// FindOrCreate inserts customer unless a row with the same contact key
// exists, and returns whichever row holds the key. The unique index makes a
// concurrent insert of the same buyer wait and then fall through to the
// existing row.
func (r *customerRepo) FindOrCreate(tx *gorm.DB, customer *model.OfflineCustomer) (*model.OfflineCustomer, error) {
	customer.ContactKey = model.CustomerKey(customer.Email, customer.Phone, customer.Name)
	if customer.ContactKey == "" {
		return nil, ErrNoContact
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contact_key"}},
		DoNothing: true,
	}).Create(customer)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create customer: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return customer, nil
	}
	var existing model.OfflineCustomer
	if err := tx.First(&existing, "contact_key = ?", customer.ContactKey).Error; err != nil {
		return nil, notFound(err)
	}
	return &existing, nil
}

// AddToTotal moves the cached total in the same transaction as the purchase.
func (r *customerRepo) AddToTotal(tx *gorm.DB, id uuid.UUID, amount int64) error {
	result := tx.Model(&model.OfflineCustomer{}).Where("id = ?", id).
		Update("total_sales", gorm.Expr("total_sales + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to update customer total: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepo) SetTotal(tx *gorm.DB, id uuid.UUID, total int64) error {
	result := tx.Model(&model.OfflineCustomer{}).Where("id = ?", id).Update("total_sales", total)
	if result.Error != nil {
		return fmt.Errorf("failed to set customer total: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.OfflineCustomer, error) {
	var customer model.OfflineCustomer
	if err := preloadPurchases(r.db.WithContext(ctx)).First(&customer, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (r *customerRepo) FindAllWithPurchases(ctx context.Context) ([]model.OfflineCustomer, error) {
	var customers []model.OfflineCustomer
	if err := preloadPurchases(r.db.WithContext(ctx)).Order("created_at ASC, id ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}
