package report

import (
	"time"

	"refurb-store-api/internal/model"

	"github.com/google/uuid"
)

type CustomerSource string

const (
	SourceOnline  CustomerSource = "online"
	SourceOffline CustomerSource = "offline"
)

// CustomerSummary is one de-duplicated buyer across both streams.
type CustomerSummary struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Source     CustomerSource `json:"source"`
	CustomerID *uuid.UUID     `json:"customer_id,omitempty"`
	Orders     int            `json:"orders"`
	TotalSpent int64          `json:"total_spent"`
	FirstSeen  time.Time      `json:"first_seen"`
	LastSeen   time.Time      `json:"last_seen"`
}

// MergeCustomers lists every distinct buyer. The first record seen for a key
// supplies its contact details; later records only add to the counters.
// Cancelled online orders are not counted as spend.
func MergeCustomers(sales []model.Sale, customers []model.OfflineCustomer) []CustomerSummary {
	return mergeCustomers(entries(Input{Sales: sales, Customers: customers}))
}

func mergeCustomers(all []entry) []CustomerSummary {
	var out []CustomerSummary
	index := map[string]int{}

	for _, e := range all {
		key := model.CustomerKey(e.email, e.phone, e.name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			summary := CustomerSummary{
				Key:       key,
				Name:      e.name,
				Email:     e.email,
				Phone:     e.phone,
				Source:    SourceOnline,
				FirstSeen: e.at,
			}
			if !e.online {
				summary.Source = SourceOffline
				summary.CustomerID = e.customerID
			}
			out = append(out, summary)
		}
		c := &out[i]
		c.Orders++
		if e.status != model.StatusCancelled {
			c.TotalSpent += e.amount
		}
		if e.at.After(c.LastSeen) {
			c.LastSeen = e.at
		}
		if c.CustomerID == nil && !e.online {
			c.CustomerID = e.customerID
		}
	}
	return out
}
