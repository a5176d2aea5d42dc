package service

import (
	"context"
	"fmt"
	"time"

	"refurb-store-api/internal/cache"
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/report"
	"refurb-store-api/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const reportKeyPattern = "report:*"

type ReportService interface {
	Revenue(ctx context.Context, window report.Window, includeCancelled bool) (*report.RevenueReport, error)
	DashboardStats(ctx context.Context) (*report.DashboardStats, error)
	StockMovement(ctx context.Context, days int) ([]report.MovementPoint, error)
	Invalidate(ctx context.Context)
}

type reportService struct {
	saleRepo     repository.SaleRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	cache        cache.Cache
	group        singleflight.Group
	location     *time.Location
	lowStock     int
	now          func() time.Time
}

func NewReportService(
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	c cache.Cache,
	location *time.Location,
	lowStock int,
) ReportService {
	if c == nil {
		c = cache.Nop{}
	}
	if location == nil {
		location = time.UTC
	}
	return &reportService{
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		cache:        c,
		location:     location,
		lowStock:     lowStock,
		now:          time.Now,
	}
}

func (s *reportService) loadInput(ctx context.Context) (report.Input, error) {
	sales, err := s.saleRepo.FindAll(ctx, repository.SaleFilter{Channels: []model.Channel{model.ChannelOnline}})
	if err != nil {
		return report.Input{}, err
	}
	customers, err := s.customerRepo.FindAllWithPurchases(ctx)
	if err != nil {
		return report.Input{}, err
	}
	products, err := s.productRepo.FindAll(ctx, repository.ProductFilter{})
	if err != nil {
		return report.Input{}, err
	}
	return report.Input{Sales: sales, Customers: customers, Products: products}, nil
}

// cached serves key from the cache, computing it at most once at a time.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *reportService, key string, compute func() (T, error)) (*T, error) {
	var hit T
	found, err := s.cache.Get(ctx, key, &hit)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("report cache read failed")
	}
	if found {
		return &hit, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		value, err := compute()
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, value); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("report cache write failed")
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	value := v.(T)
	return &value, nil
}

func (s *reportService) Revenue(ctx context.Context, window report.Window, includeCancelled bool) (*report.RevenueReport, error) {
	now := s.now().In(s.location)
	key := fmt.Sprintf("report:%s:%s:%t", window, now.Format("2006-01-02"), includeCancelled)
	return cached(ctx, s, key, func() (report.RevenueReport, error) {
		in, err := s.loadInput(ctx)
		if err != nil {
			return report.RevenueReport{}, err
		}
		return report.Aggregate(in, report.Query{
			Window:           window,
			Now:              now,
			Location:         s.location,
			IncludeCancelled: includeCancelled,
		}), nil
	})
}

func (s *reportService) DashboardStats(ctx context.Context) (*report.DashboardStats, error) {
	return cached(ctx, s, "report:stats", func() (report.DashboardStats, error) {
		in, err := s.loadInput(ctx)
		if err != nil {
			return report.DashboardStats{}, err
		}
		return report.Stats(in, s.lowStock, false), nil
	})
}

func (s *reportService) StockMovement(ctx context.Context, days int) ([]report.MovementPoint, error) {
	if days <= 0 || days > 366 {
		days = 7
	}
	now := s.now()
	start := report.SeriesStart(days, now, s.location)
	movements, err := s.movementRepo.FindBetween(ctx, start, now.Add(time.Second))
	if err != nil {
		return nil, err
	}
	return report.MovementSeries(movements, days, now, s.location), nil
}

func (s *reportService) Invalidate(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, reportKeyPattern); err != nil {
		logrus.WithError(err).Warn("report cache invalidation failed")
	}
}
