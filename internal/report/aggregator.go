// Package report turns persisted sales into dashboard numbers.
//
// Online orders and offline customer purchases arrive as two separate
// streams. Every figure that mixes them goes through entries, so the merge
// rules live in one place. All functions here are pure: the same input
// always produces the same, deterministically ordered output.
package report

import (
	"fmt"
	"sort"
	"time"

	"refurb-store-api/internal/model"

	"github.com/google/uuid"
)

type Window string

const (
	Window7Days   Window = "7d"
	Window6Months Window = "6mo"
)

func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case Window7Days, "":
		return Window7Days, nil
	case Window6Months:
		return Window6Months, nil
	}
	return "", fmt.Errorf("unknown window %q, use 7d or 6mo", s)
}

// Input is everything the aggregator reads. Offline purchases must be
// loaded on Customers; offline sales present in Sales are ignored so a
// purchase is never counted twice.
type Input struct {
	Sales     []model.Sale
	Customers []model.OfflineCustomer
	Products  []model.Product
}

type Query struct {
	Window   Window
	Now      time.Time
	Location *time.Location
	// IncludeCancelled counts cancelled online orders in revenue buckets.
	IncludeCancelled bool
}

type Bucket struct {
	Label          string `json:"label"`
	Revenue        int64  `json:"revenue"`
	Count          int    `json:"count"`
	OnlineRevenue  int64  `json:"onlineRevenue"`
	OfflineRevenue int64  `json:"offlineRevenue"`
}

type CategoryTotal struct {
	Name      string `json:"name"`
	Available int    `json:"available"`
	Sold      int    `json:"sold"`
}

type RevenueReport struct {
	Window              Window          `json:"window"`
	IncludeCancelled    bool            `json:"includeCancelled"`
	Buckets             []Bucket        `json:"buckets"`
	TotalRevenue        int64           `json:"totalRevenue"`
	CategoryTotals      []CategoryTotal `json:"categoryTotals"`
	UniqueCustomerCount int             `json:"uniqueCustomerCount"`
}

// entry is one sale from either stream.
type entry struct {
	id        uuid.UUID
	at        time.Time
	online    bool
	status    model.SaleStatus
	amount    int64
	lines     []model.SaleLineItem
	name      string
	email     string
	phone     string
	countable bool // counts as sold for inventory rollups

	customerID *uuid.UUID
}

// entries merges the online and offline streams, each in (created_at, id) order,
// online first.
func entries(in Input) []entry {
	var online, offline []entry
	for i := range in.Sales {
		s := &in.Sales[i]
		if !s.IsOnline() {
			continue
		}
		online = append(online, toEntry(s, s.CustomerName, s.CustomerEmail, s.CustomerPhone))
	}
	for _, c := range sortedCustomers(in.Customers) {
		for i := range c.Purchases {
			e := toEntry(&c.Purchases[i], c.Name, c.Email, c.Phone)
			id := c.ID
			e.customerID = &id
			offline = append(offline, e)
		}
	}
	sortEntries(online)
	sortEntries(offline)
	return append(online, offline...)
}

func toEntry(s *model.Sale, name, email, phone string) entry {
	return entry{
		id:        s.ID,
		at:        s.CreatedAt,
		online:    s.IsOnline(),
		status:    s.Status,
		amount:    s.TotalAmount,
		lines:     s.LineItems,
		name:      name,
		email:     email,
		phone:     phone,
		countable: s.CountsAsSold(),
	}
}

func sortEntries(es []entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].at.Equal(es[j].at) {
			return es[i].at.Before(es[j].at)
		}
		return es[i].id.String() < es[j].id.String()
	})
}

func sortedCustomers(customers []model.OfflineCustomer) []model.OfflineCustomer {
	out := make([]model.OfflineCustomer, len(customers))
	copy(out, customers)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// countsAsRevenue applies the cancelled-order policy.
func (e entry) countsAsRevenue(includeCancelled bool) bool {
	return e.status != model.StatusCancelled || includeCancelled
}

// Aggregate builds the revenue report for a window.
func Aggregate(in Input, q Query) RevenueReport {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	window := q.Window
	if window == "" {
		window = Window7Days
	}

	keys, labels := bucketKeys(window, q.Now.In(loc))
	index := make(map[string]int, len(keys))
	buckets := make([]Bucket, len(keys))
	for i, k := range keys {
		index[k] = i
		buckets[i] = Bucket{Label: labels[i]}
	}

	all := entries(in)
	var total int64
	for _, e := range all {
		if !e.countsAsRevenue(q.IncludeCancelled) {
			continue
		}
		i, ok := index[bucketKey(window, e.at.In(loc))]
		if !ok {
			continue
		}
		b := &buckets[i]
		b.Revenue += e.amount
		b.Count++
		if e.online {
			b.OnlineRevenue += e.amount
		} else {
			b.OfflineRevenue += e.amount
		}
		total += e.amount
	}

	return RevenueReport{
		Window:              window,
		IncludeCancelled:    q.IncludeCancelled,
		Buckets:             buckets,
		TotalRevenue:        total,
		CategoryTotals:      categoryTotals(in.Products, all),
		UniqueCustomerCount: len(mergeCustomers(all)),
	}
}

func bucketKey(w Window, t time.Time) string {
	if w == Window6Months {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// bucketKeys returns the window's bucket keys oldest first, ending at now.
func bucketKeys(w Window, now time.Time) (keys, labels []string) {
	if w == Window6Months {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		for i := 5; i >= 0; i-- {
			m := first.AddDate(0, -i, 0)
			keys = append(keys, m.Format("2006-01"))
			labels = append(labels, m.Format("Jan 2006"))
		}
		return keys, labels
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 6; i >= 0; i-- {
		d := day.AddDate(0, 0, -i)
		keys = append(keys, d.Format("2006-01-02"))
		labels = append(labels, d.Format("2006-01-02"))
	}
	return keys, labels
}

const uncategorized = "Uncategorized"

// categoryTotals sums product stock as available and fulfilled line
// quantities as sold. A unit is never sold before it ships.
func categoryTotals(products []model.Product, all []entry) []CategoryTotal {
	byName := map[string]*CategoryTotal{}
	get := func(name string) *CategoryTotal {
		if name == "" {
			name = uncategorized
		}
		ct, ok := byName[name]
		if !ok {
			ct = &CategoryTotal{Name: name}
			byName[name] = ct
		}
		return ct
	}

	for _, p := range products {
		get(p.Category).Available += p.Stock
	}
	for _, e := range all {
		if !e.countable {
			continue
		}
		for _, line := range e.lines {
			get(line.Category).Sold += line.Quantity
		}
	}

	out := make([]CategoryTotal, 0, len(byName))
	for _, ct := range byName {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
