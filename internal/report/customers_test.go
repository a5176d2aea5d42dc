package report

import (
	"testing"
	"time"

	"refurb-store-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCustomersCaseInsensitiveEmail(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sales := []model.Sale{
		sale(model.ChannelOnline, model.StatusShipped, now, 100, "a@x.com"),
	}
	customers := []model.OfflineCustomer{
		customer("Ann", "A@X.com", now.Add(-time.Hour),
			sale(model.ChannelOffline, model.StatusCompleted, now.Add(-time.Hour), 50, "")),
	}

	merged := MergeCustomers(sales, customers)

	require.Len(t, merged, 1)
	c := merged[0]
	// the online record is visited first even though the offline purchase is older
	assert.Equal(t, SourceOnline, c.Source)
	assert.Equal(t, "a@x.com", c.Email)
	assert.Equal(t, 2, c.Orders)
	assert.Equal(t, int64(150), c.TotalSpent)
	assert.NotNil(t, c.CustomerID)
	assert.Equal(t, now, c.LastSeen)
}

func TestMergeCustomersDeterministicOrder(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	early := sale(model.ChannelOnline, model.StatusProcessing, now.Add(-2*time.Hour), 10, "late@x.com")
	late := sale(model.ChannelOnline, model.StatusProcessing, now, 10, "early@x.com")
	cancelled := sale(model.ChannelOnline, model.StatusCancelled, now.Add(-time.Hour), 99, "early@x.com")

	for i := 0; i < 5; i++ {
		merged := MergeCustomers([]model.Sale{late, cancelled, early}, nil)
		require.Len(t, merged, 2)
		assert.Equal(t, "late@x.com", merged[0].Email)
		assert.Equal(t, "early@x.com", merged[1].Email)
		assert.Equal(t, int64(10), merged[1].TotalSpent)
		assert.Equal(t, 2, merged[1].Orders)
	}
}

func TestMergeCustomersSkipsAnonymous(t *testing.T) {
	now := time.Now()
	s := sale(model.ChannelOnline, model.StatusShipped, now, 100, "")
	s.CustomerName = ""
	assert.Empty(t, MergeCustomers([]model.Sale{s}, nil))
}
