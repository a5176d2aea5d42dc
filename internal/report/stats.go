package report

import (
	"time"

	"refurb-store-api/internal/model"
)

// DashboardStats is the overview card row.
type DashboardStats struct {
	TotalProducts   int   `json:"total_products"`
	LowStockCount   int   `json:"low_stock_count"`
	TotalValuation  int64 `json:"total_valuation"`
	TotalRevenue    int64 `json:"total_revenue"`
	OnlineRevenue   int64 `json:"online_revenue"`
	OfflineRevenue  int64 `json:"offline_revenue"`
	OnlineOrders    int   `json:"online_orders"`
	OfflineSales    int   `json:"offline_sales"`
	PendingOrders   int   `json:"pending_orders"`
	UnitsSold       int   `json:"units_sold"`
	UniqueCustomers int   `json:"unique_customers"`
}

// Stats computes all-time dashboard figures. A product is low on stock when
// its stock is at or below lowStock.
func Stats(in Input, lowStock int, includeCancelled bool) DashboardStats {
	var st DashboardStats
	for _, p := range in.Products {
		st.TotalProducts++
		if p.Stock <= lowStock {
			st.LowStockCount++
		}
		st.TotalValuation += p.Price * int64(p.Stock)
	}

	all := entries(in)
	for _, e := range all {
		if e.online {
			st.OnlineOrders++
			if e.status == model.StatusProcessing {
				st.PendingOrders++
			}
		} else {
			st.OfflineSales++
		}
		if e.countable {
			for _, line := range e.lines {
				st.UnitsSold += line.Quantity
			}
		}
		if !e.countsAsRevenue(includeCancelled) {
			continue
		}
		st.TotalRevenue += e.amount
		if e.online {
			st.OnlineRevenue += e.amount
		} else {
			st.OfflineRevenue += e.amount
		}
	}
	st.UniqueCustomers = len(mergeCustomers(all))
	return st
}

type MovementPoint struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// MovementSeries buckets stock movements per local day for the last days
// days ending today. Days without movement are present with zeros.
func MovementSeries(movements []model.StockMovement, days int, now time.Time, loc *time.Location) []MovementPoint {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = 7
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	points := make([]MovementPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		points[i] = MovementPoint{Date: d}
		index[d] = i
	}

	for _, m := range movements {
		i, ok := index[m.CreatedAt.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch m.Type {
		case model.MovementIn:
			points[i].Inbound += m.Quantity
		case model.MovementOut:
			points[i].Outbound += m.Quantity
		}
	}
	return points
}

// SeriesStart is the instant the first bucket of MovementSeries begins.
func SeriesStart(days int, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = 7
	}
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1-days)
}
