package service

import (
	"context"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/report"
	"refurb-store-api/internal/repository"

	"github.com/google/uuid"
)

type CustomerService interface {
	// ListCustomers returns the merged online and offline buyer list.
	ListCustomers(ctx context.Context) ([]report.CustomerSummary, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.OfflineCustomer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository, saleRepo repository.SaleRepository) CustomerService {
	return &customerService{customerRepo: customerRepo, saleRepo: saleRepo}
}

func (s *customerService) ListCustomers(ctx context.Context) ([]report.CustomerSummary, error) {
	online, err := s.saleRepo.FindAll(ctx, repository.SaleFilter{Channels: []model.Channel{model.ChannelOnline}})
	if err != nil {
		return nil, err
	}
	customers, err := s.customerRepo.FindAllWithPurchases(ctx)
	if err != nil {
		return nil, err
	}
	merged := report.MergeCustomers(online, customers)
	if merged == nil {
		merged = []report.CustomerSummary{}
	}
	return merged, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*model.OfflineCustomer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}
