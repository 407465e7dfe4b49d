package compensation

import (
	"testing"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plan() []models.Rank {
	// deliberately out of order
	return []models.Rank{
		{Name: "Gold", Level: 4, PVThreshold: 300, GVThreshold: 6000, CommissionRate: 12},
		{Name: "Starter", Level: 1, PVThreshold: 0, GVThreshold: 0, CommissionRate: 5},
		{Name: "Silver", Level: 3, PVThreshold: 200, GVThreshold: 2000, CommissionRate: 10},
		{Name: "Bronze", Level: 2, PVThreshold: 100, GVThreshold: 500, CommissionRate: 8},
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name    string
		current string
		pv, gv  float64
		want    string
	}{
		{"new consultant", "", 0, 0, "Starter"},
		{"meets bronze", "Starter", 100, 500, "Bronze"},
		{"pv without gv", "Starter", 250, 400, "Starter"},
		{"skips tiers", "Starter", 400, 7000, "Gold"},
		{"no demotion", "Silver", 10, 10, "Silver"},
		{"unknown current", "Legacy", 120, 900, "Bronze"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(plan(), tc.current, tc.pv, tc.gv)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Name)
		})
	}

	assert.Nil(t, Evaluate(nil, "Starter", 100, 100))
}

func TestNext(t *testing.T) {
	assert.Equal(t, "Bronze", Next(plan(), "Starter").Name)
	assert.Equal(t, "Gold", Next(plan(), "Silver").Name)
	assert.Nil(t, Next(plan(), "Gold"))
	assert.Equal(t, "Starter", Next(plan(), "nobody").Name)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 50.0, Percent(50, 100))
	assert.Equal(t, 100.0, Percent(150, 100))
	assert.Equal(t, 100.0, Percent(0, 0))
	assert.Equal(t, 0.0, Percent(-5, 100))
	assert.Equal(t, 33.33, Percent(1, 3))
}

func TestProgress(t *testing.T) {
	p := Progress(plan(), "Bronze", 150, 500)
	require.NotNil(t, p.CurrentRank)
	require.NotNil(t, p.NextRank)
	assert.Equal(t, "Silver", p.NextRank.Name)
	assert.Equal(t, 75.0, p.PVProgress)
	assert.Equal(t, 25.0, p.GVProgress)
	assert.Equal(t, 25.0, p.OverallProgress)
	assert.Equal(t, 50.0, p.PVRemaining)
	assert.Equal(t, 1500.0, p.GVRemaining)

	top := Progress(plan(), "Gold", 1, 1)
	assert.Nil(t, top.NextRank)
	assert.Equal(t, 100.0, top.OverallProgress)
}

func TestCommission(t *testing.T) {
	assert.Equal(t, 12.5, Commission(250, 5))
	assert.Equal(t, 3.33, Commission(33.3, 10))
	assert.Zero(t, Commission(-1, 10))
	assert.Zero(t, Commission(100, 0))
}
