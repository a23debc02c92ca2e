package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderTotalIsSumOfSubtotals(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
		want  float64
	}{
		{name: "single line", items: []OrderItem{{AlbumID: "a", Quantity: 2, Price: 19.99}}, want: 39.98},
		{name: "several lines", items: []OrderItem{
			{AlbumID: "a", Quantity: 1, Price: 10.5},
			{AlbumID: "b", Quantity: 3, Price: 7.25},
			{AlbumID: "c", Quantity: 2, Price: 0},
		}, want: 32.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := NewOrder("u1", tt.items, time.Now())

			assert.InDelta(t, tt.want, order.Total, 1e-9)
			assert.Equal(t, StatusPending, order.Status)
			assert.NotEmpty(t, order.ID)
			for i, item := range order.Items {
				assert.NotEmpty(t, item.ID)
				assert.Equal(t, tt.items[i].AlbumID, item.AlbumID)
			}
		})
	}
}
