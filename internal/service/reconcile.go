package service

import (
	"context"

	"refurb-store-api/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TotalCorrection records one customer whose cached total drifted from its purchases.
type TotalCorrection struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Stored     int64     `json:"stored"`
	Computed   int64     `json:"computed"`
}

// ReconcileCustomerTotals recomputes every offline customer's total_sales from
// their purchases. With dryRun set the drift is only reported.
func ReconcileCustomerTotals(ctx context.Context, db *gorm.DB, customerRepo repository.CustomerRepository, dryRun bool) ([]TotalCorrection, error) {
	customers, err := customerRepo.FindAllWithPurchases(ctx)
	if err != nil {
		return nil, err
	}

	corrections := []TotalCorrection{}
	for i := range customers {
		computed := customers[i].PurchaseTotal()
		if computed == customers[i].TotalSales {
			continue
		}
		corrections = append(corrections, TotalCorrection{
			CustomerID: customers[i].ID,
			Name:       customers[i].Name,
			Stored:     customers[i].TotalSales,
			Computed:   computed,
		})
	}
	if dryRun || len(corrections) == 0 {
		return corrections, nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range corrections {
			if err := customerRepo.SetTotal(tx, c.CustomerID, c.Computed); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"customer_id": c.CustomerID,
				"stored":      c.Stored,
				"computed":    c.Computed,
			}).Info("customer total corrected")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corrections, nil
}
