package report

import (
	"encoding/json"
	"testing"
	"time"

	"refurb-store-api/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func sale(channel model.Channel, status model.SaleStatus, at time.Time, total int64, email string, lines ...model.SaleLineItem) model.Sale {
	s := model.Sale{
		Channel:       channel,
		Status:        status,
		CustomerEmail: email,
		CustomerName:  "Buyer " + email,
		TotalAmount:   total,
		LineItems:     lines,
	}
	s.ID = uuid.New()
	s.CreatedAt = at
	return s
}

func line(category string, qty int) model.SaleLineItem {
	return model.SaleLineItem{Category: category, Quantity: qty}
}

func customer(name, email string, at time.Time, purchases ...model.Sale) model.OfflineCustomer {
	c := model.OfflineCustomer{Name: name, Email: email, Purchases: purchases}
	c.ID = uuid.New()
	c.CreatedAt = at
	return c
}

func TestAggregateSevenDayBuckets(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, ist)
	in := Input{
		Sales: []model.Sale{
			sale(model.ChannelOnline, model.StatusShipped, now.Add(-time.Hour), 2360, "a@x.com", line("Phones", 1)),
			sale(model.ChannelOnline, model.StatusProcessing, now.AddDate(0, 0, -6), 1000, "b@x.com", line("Laptops", 1)),
			sale(model.ChannelOnline, model.StatusDelivered, now.AddDate(0, 0, -7), 5000, "c@x.com"),
			// offline rows in Sales are ignored, they come from customers
			sale(model.ChannelOffline, model.StatusCompleted, now, 9999, "d@x.com"),
		},
		Customers: []model.OfflineCustomer{
			customer("Dee", "d@x.com", now.AddDate(0, 0, -1),
				sale(model.ChannelOffline, model.StatusCompleted, now.AddDate(0, 0, -1), 700, "", line("Phones", 2))),
		},
	}

	r := Aggregate(in, Query{Window: Window7Days, Now: now, Location: ist})

	require.Len(t, r.Buckets, 7)
	assert.Equal(t, "2026-03-04", r.Buckets[0].Label)
	assert.Equal(t, "2026-03-10", r.Buckets[6].Label)
	assert.Equal(t, int64(1000), r.Buckets[0].Revenue)
	assert.Equal(t, int64(700), r.Buckets[5].Revenue)
	assert.Equal(t, int64(700), r.Buckets[5].OfflineRevenue)
	assert.Equal(t, int64(2360), r.Buckets[6].Revenue)
	assert.Equal(t, 1, r.Buckets[6].Count)
	assert.Equal(t, int64(4060), r.TotalRevenue)
	assert.Equal(t, 4, r.UniqueCustomerCount)
}

func TestAggregateUsesDisplayTimeZone(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, ist)
	// 20:00 UTC on the 9th is 01:30 on the 10th in IST
	at := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	in := Input{Sales: []model.Sale{sale(model.ChannelOnline, model.StatusShipped, at, 100, "a@x.com")}}

	r := Aggregate(in, Query{Window: Window7Days, Now: now, Location: ist})
	assert.Equal(t, int64(100), r.Buckets[6].Revenue)

	r = Aggregate(in, Query{Window: Window7Days, Now: now, Location: time.UTC})
	assert.Equal(t, int64(100), r.Buckets[5].Revenue)
}

func TestAggregateSixMonthBuckets(t *testing.T) {
	now := time.Date(2026, 3, 31, 10, 0, 0, 0, ist)
	in := Input{
		Sales: []model.Sale{
			sale(model.ChannelOnline, model.StatusDelivered, time.Date(2025, 10, 1, 9, 0, 0, 0, ist), 300, "a@x.com"),
			sale(model.ChannelOnline, model.StatusDelivered, time.Date(2025, 9, 30, 9, 0, 0, 0, ist), 999, "a@x.com"),
			sale(model.ChannelOnline, model.StatusShipped, time.Date(2026, 3, 1, 9, 0, 0, 0, ist), 200, "b@x.com"),
		},
	}

	r := Aggregate(in, Query{Window: Window6Months, Now: now, Location: ist})

	require.Len(t, r.Buckets, 6)
	assert.Equal(t, "Oct 2025", r.Buckets[0].Label)
	assert.Equal(t, "Mar 2026", r.Buckets[5].Label)
	assert.Equal(t, int64(300), r.Buckets[0].Revenue)
	assert.Equal(t, int64(200), r.Buckets[5].Revenue)
	assert.Equal(t, int64(500), r.TotalRevenue)
}

func TestAggregateCancelledPolicy(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, ist)
	in := Input{Sales: []model.Sale{
		sale(model.ChannelOnline, model.StatusCancelled, now, 500, "a@x.com", line("Phones", 1)),
		sale(model.ChannelOnline, model.StatusProcessing, now, 100, "b@x.com", line("Phones", 1)),
	}}

	r := Aggregate(in, Query{Window: Window7Days, Now: now, Location: ist})
	assert.Equal(t, int64(100), r.TotalRevenue)
	assert.False(t, r.IncludeCancelled)

	r = Aggregate(in, Query{Window: Window7Days, Now: now, Location: ist, IncludeCancelled: true})
	assert.Equal(t, int64(600), r.TotalRevenue)

	// neither order shipped, so nothing is sold
	require.Len(t, r.CategoryTotals, 1)
	assert.Equal(t, 0, r.CategoryTotals[0].Sold)
}

func TestCategoryTotals(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, ist)
	in := Input{
		Products: []model.Product{
			{Category: "Phones", Stock: 8},
			{Category: "Laptops", Stock: 2},
			{Category: "Phones", Stock: 1},
		},
		Sales: []model.Sale{
			sale(model.ChannelOnline, model.StatusShipped, now, 0, "a@x.com", line("Phones", 2)),
			sale(model.ChannelOnline, model.StatusProcessing, now, 0, "a@x.com", line("Phones", 5)),
		},
		Customers: []model.OfflineCustomer{
			customer("Dee", "", now, sale(model.ChannelAmazon, model.StatusCompleted, now, 0, "", line("Tablets", 3), line("", 1))),
		},
	}

	r := Aggregate(in, Query{Now: now, Location: ist})

	assert.Equal(t, []CategoryTotal{
		{Name: "Laptops", Available: 2, Sold: 0},
		{Name: "Phones", Available: 9, Sold: 2},
		{Name: "Tablets", Available: 0, Sold: 3},
		{Name: "Uncategorized", Available: 0, Sold: 1},
	}, r.CategoryTotals)
}

func TestAggregateIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, ist)
	in := Input{
		Products: []model.Product{{Category: "B", Stock: 1}, {Category: "A", Stock: 4}, {Category: "C", Stock: 2}},
		Sales: []model.Sale{
			sale(model.ChannelOnline, model.StatusShipped, now, 10, "x@y.com", line("C", 1)),
			sale(model.ChannelOnline, model.StatusShipped, now, 20, "z@y.com", line("A", 1), line("B", 2)),
		},
		Customers: []model.OfflineCustomer{
			customer("Q", "", now, sale(model.ChannelFlipkart, model.StatusCompleted, now, 30, "", line("B", 1))),
		},
	}
	q := Query{Window: Window7Days, Now: now, Location: ist}

	first, err := json.Marshal(Aggregate(in, q))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Aggregate(in, q))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, Window7Days, w)

	w, err = ParseWindow("6mo")
	require.NoError(t, err)
	assert.Equal(t, Window6Months, w)

	_, err = ParseWindow("1y")
	assert.Error(t, err)
}
