package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "TAX_RATE", "MIN_WITHDRAWAL", "JWT_EXPIRATION_MINUTES", "ADMIN_EMAILS"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.InDelta(t, 0.15, cfg.TaxRate, 1e-9)
	assert.InDelta(t, 100.0, cfg.MinWithdrawal, 1e-9)
	assert.Equal(t, 60*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.True(t, cfg.PayFast.Sandbox)
	assert.Equal(t, 3, cfg.DefaultNetworkDepth)
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("TAX_RATE", "0.08")
	t.Setenv("ADMIN_EMAILS", " boss@example.com, ,ops@example.com")
	t.Setenv("JWT_EXPIRATION_MINUTES", "not-a-number")

	cfg := Load()
	assert.InDelta(t, 0.08, cfg.TaxRate, 1e-9)
	assert.Equal(t, []string{"boss@example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("BOSS@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.Equal(t, 60*time.Minute, cfg.AccessTokenTTL)

	t.Setenv("TAX_RATE", "1.5")
	assert.InDelta(t, 0.15, Load().TaxRate, 1e-9)
}

func TestParsePlanSortsByLevel(t *testing.T) {
	plan, err := ParsePlan([]byte(`
ranks:
  - {name: Gold, level: 3, pv_threshold: 300, gv_threshold: 6000, commission_rate: 12}
  - {name: Starter, level: 1, pv_threshold: 0, gv_threshold: 0, commission_rate: 5}
  - {name: " Silver ", level: 2, pv_threshold: 200, gv_threshold: 2000, commission_rate: 10}
`))
	require.NoError(t, err)
	require.Len(t, plan.Ranks, 3)
	assert.Equal(t, "Starter", plan.Ranks[0].Name)
	assert.Equal(t, "Silver", plan.Ranks[1].Name)
	assert.Equal(t, "Gold", plan.Ranks[2].Name)
}

func TestParsePlanRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":          `ranks: []`,
		"duplicate name": "ranks:\n  - {name: A, level: 1}\n  - {name: a, level: 2}\n",
		"duplicate lvl":  "ranks:\n  - {name: A, level: 1}\n  - {name: B, level: 1}\n",
		"negative":       "ranks:\n  - {name: A, level: 1, pv_threshold: -1}\n",
		"rate":           "ranks:\n  - {name: A, level: 1, commission_rate: 120}\n",
		"no name":        "ranks:\n  - {level: 1}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPlanShippedFile(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "plan.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("plan file not present")
	}
	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "Starter", plan.Ranks[0].Name)
	assert.Equal(t, "Platinum", plan.Ranks[len(plan.Ranks)-1].Name)
}
