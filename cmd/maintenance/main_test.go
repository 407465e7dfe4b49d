package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
)

func TestParseSecret(t *testing.T) {
	dsn, err := parseSecret(`{"DATABASE_URL":"postgres://u:p@h:5432/d"}`)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/d", dsn)

	_, err = parseSecret(`{"OTHER":"x"}`)
	assert.Error(t, err)

	_, err = parseSecret(`not json`)
	assert.Error(t, err)
}

func TestMetricData(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	data := metricData(&db.MaintenanceReport{ExpiredRefreshTokens: 4, AbandonedCartItems: 7, ExpiredOrders: 2}, now)
	require.Len(t, data, 3)

	got := map[string]float64{}
	for _, d := range data {
		assert.Equal(t, "RowsAffected", *d.MetricName)
		assert.Equal(t, now, *d.Timestamp)
		require.Len(t, d.Dimensions, 1)
		got[*d.Dimensions[0].Value] = *d.Value
	}
	assert.Equal(t, map[string]float64{
		"refresh_tokens_expired": 4,
		"cart_items_abandoned":   7,
		"sales_expired":          2,
	}, got)
}
