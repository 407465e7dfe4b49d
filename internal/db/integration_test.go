//go:build integration

package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

func startPostgres(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "consultant",
				"POSTGRES_PASSWORD": "consultant",
				"POSTGRES_DB":       "consultant_connect",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://consultant:consultant@%s:%s/consultant_connect?sslmode=disable", host, port.Port())
	database, err := Connect(dsn, 5, 500*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	plan, err := config.LoadPlan("../../configs/plan.yaml")
	require.NoError(t, err)
	n, err := database.SeedRanks(ctx, plan)
	require.NoError(t, err)
	require.Equal(t, len(plan.Ranks), n)
	return database
}

func signup(t *testing.T, database *Database, email, code, sponsor string) *models.User {
	t.Helper()
	u, err := database.CreateAccount(context.Background(), models.NewAccount{
		Email:        email,
		PasswordHash: "x",
		FullName:     email,
		ReferralCode: sponsor,
		OwnCode:      code,
	})
	require.NoError(t, err)
	return u
}

func TestCommerceLifecycle(t *testing.T) {
	database := startPostgres(t)
	ctx := context.Background()

	alpha := signup(t, database, "alpha@example.com", "ALPHA001", "")
	bravo := signup(t, database, "bravo@example.com", "BRAVO001", "alpha001")
	charlie := signup(t, database, "charlie@example.com", "CHARL001", "BRAVO001")

	_, err := database.CreateAccount(ctx, models.NewAccount{Email: "ALPHA@example.com", PasswordHash: "x", FullName: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	_, err = database.CreateAccount(ctx, models.NewAccount{Email: "x@example.com", PasswordHash: "x", FullName: "x", ReferralCode: "NOPE"})
	assert.ErrorIs(t, err, ErrInvalidReferral)

	a, err := database.GetProfile(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TeamSize)
	assert.Equal(t, "Starter", a.RankName)

	product, err := database.CreateProduct(ctx, models.Product{Name: "Shea Butter", Price: 1000, VP: 300, Stock: 5, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, database.AddCartItem(ctx, charlie.ID, product.ID, 2))
	assert.ErrorIs(t, database.AddCartItem(ctx, charlie.ID, product.ID, 4), ErrInsufficientStock)

	order, err := database.Checkout(ctx, charlie.ID, nil, 0.15)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.InDelta(t, 2000, order.Subtotal, 0.001)
	assert.InDelta(t, 300, order.Tax, 0.001)
	assert.InDelta(t, 2300, order.Total, 0.001)
	assert.InDelta(t, 600, order.TotalVP, 0.001)
	require.Len(t, order.Items, 1)

	_, err = database.Checkout(ctx, charlie.ID, nil, 0.15)
	assert.ErrorIs(t, err, ErrEmptyCart)

	p, err := database.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	res, err := database.MarkPaid(ctx, order.ID, &models.PaymentConfirmation{Provider: "payfast", ProviderPaymentID: "pf-1"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.OrderStatusPaid, res.Order.Status)
	require.NotNil(t, res.Bonus)
	assert.Equal(t, bravo.ID, res.Bonus.UserID)
	assert.InDelta(t, 100, res.Bonus.Amount, 0.001)
	require.Len(t, res.Promotions, 1)
	assert.Equal(t, Promotion{UserID: charlie.ID, From: "Starter", To: "Bronze"}, res.Promotions[0])

	again, err := database.MarkPaid(ctx, order.ID, nil, nil)
	require.NoError(t, err)
	assert.False(t, again.Applied)

	c, err := database.GetProfile(ctx, charlie.ID)
	require.NoError(t, err)
	assert.InDelta(t, 600, c.PersonalVolume, 0.001)
	assert.InDelta(t, 600, c.GroupVolume, 0.001)
	for _, id := range []string{alpha.ID, bravo.ID} {
		up, err := database.GetProfile(ctx, id)
		require.NoError(t, err)
		assert.InDelta(t, 0, up.PersonalVolume, 0.001)
		assert.InDelta(t, 600, up.GroupVolume, 0.001)
	}

	bonuses, total, err := database.ListBonuses(ctx, bravo.ID, models.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, bonuses, 1)

	_, err = database.RequestWithdrawal(ctx, bravo.ID, models.WithdrawalRequest{Amount: 150, BankName: "FNB", AccountHolder: "B", AccountNumber: "62001234567"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	w, err := database.RequestWithdrawal(ctx, bravo.ID, models.WithdrawalRequest{Amount: 100, BankName: "FNB", AccountHolder: "B", AccountNumber: "62001234567"})
	require.NoError(t, err)
	_, err = database.RequestWithdrawal(ctx, bravo.ID, models.WithdrawalRequest{Amount: 1, BankName: "FNB", AccountHolder: "B", AccountNumber: "62001234567"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = database.UpdateWithdrawalStatus(ctx, w.ID, models.WithdrawalPaid, "", alpha.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	w, err = database.UpdateWithdrawalStatus(ctx, w.ID, models.WithdrawalApproved, "ok", alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, "bravo@example.com", w.UserEmail)

	balance, err := database.GetBalance(ctx, bravo.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0, balance.Available, 0.001)
	assert.InDelta(t, 100, balance.PendingPayouts, 0.001)

	_, err = database.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped, &alpha.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = database.UpdateOrderStatus(ctx, order.ID, models.OrderStatusProcessing, &alpha.ID, "packing")
	require.NoError(t, err)

	detail, err := database.AdminGetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, detail.StatusHistory, 3)
	assert.Equal(t, 2, detail.Order.ItemCount)

	stats, err := database.GetAdminStatistics(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2300, stats.TotalRevenue, 0.001)
	assert.Equal(t, 3, stats.ConsultantCount)
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderStatusProcessing])
}

func TestCancelRestoresStock(t *testing.T) {
	database := startPostgres(t)
	ctx := context.Background()

	buyer := signup(t, database, "buyer@example.com", "", "")
	other := signup(t, database, "other@example.com", "", "")
	product, err := database.CreateProduct(ctx, models.Product{Name: "Rooibos", Price: 50, VP: 10, Stock: 4, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, database.AddCartItem(ctx, buyer.ID, product.ID, 3))
	order, err := database.Checkout(ctx, buyer.ID, &models.Address{Line1: "1 Long St", City: "Cape Town", PostalCode: "8001"}, 0.15)
	require.NoError(t, err)
	assert.Equal(t, "Cape Town", order.ShippingAddress.City)

	_, err = database.CancelOrder(ctx, order.ID, &other.ID, &other.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, err := database.CancelOrder(ctx, order.ID, &buyer.ID, &buyer.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	p, err := database.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)

	_, err = database.MarkPaid(ctx, order.ID, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConcurrentAddToCartRespectsStock(t *testing.T) {
	database := startPostgres(t)
	ctx := context.Background()

	buyer := signup(t, database, "rush@example.com", "", "")
	product, err := database.CreateProduct(ctx, models.Product{Name: "Marula Oil", Price: 120, VP: 40, Stock: 5, IsActive: true})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		added    int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := database.AddCartItem(ctx, buyer.ID, product.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				added++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, added)
	assert.Equal(t, 5, rejected)
	items, err := database.GetCartItems(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestRankAdministration(t *testing.T) {
	database := startPostgres(t)
	ctx := context.Background()

	ranks, err := database.ListRanks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, ranks)
	starter := ranks[0]
	signup(t, database, "holder@example.com", "", "")

	rate := starter.CommissionRate
	_, err = database.UpdateRank(ctx, starter.ID, models.UpdateRankRequest{
		RankRequest: models.RankRequest{Name: "Associate", CommissionRate: &rate},
		Version:     starter.Version + 1,
	})
	assert.ErrorIs(t, err, ErrVersionMismatch)

	renamed, err := database.UpdateRank(ctx, starter.ID, models.UpdateRankRequest{
		RankRequest: models.RankRequest{Name: "Associate", CommissionRate: &rate},
		Version:     starter.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, starter.Version+1, renamed.Version)

	customers, err := database.ListCustomers(ctx, models.CustomerListParams{Rank: "Associate"})
	require.NoError(t, err)
	assert.Equal(t, 1, customers.Total)

	err = database.DeleteRank(ctx, starter.ID)
	assert.True(t, errors.Is(err, ErrRankInUse))

	moved, err := database.MoveRank(ctx, starter.ID, "up")
	require.NoError(t, err)
	assert.Equal(t, ranks[1].ID, moved[0].ID)
	assert.Equal(t, starter.ID, moved[1].ID)

	_, err = database.MoveRank(ctx, moved[len(moved)-1].ID, "up")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
