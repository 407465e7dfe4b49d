package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/Pixelkingsa/consultant-connect/internal/network"
	"github.com/Pixelkingsa/consultant-connect/internal/payfast"
)

const testPassphrase = "pp"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore implements the handful of Store methods the handlers under test reach.
// Anything else panics through the nil embedded interface.
type fakeStore struct {
	Store

	users    map[string]*models.User
	profiles map[string]*models.Profile
	orders   map[string]*models.Order

	addCartErr  error
	checkoutErr error
	withdrawErr error
	downline    []network.Member
	downDepth   int
	paidResult  *db.PaymentResult
	paidCalls   int
	cancelCalls int
	statusCalls []models.OrderStatus
	roles       map[string]bool
	revoked     map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*models.User{},
		profiles: map[string]*models.Profile{},
		orders:   map[string]*models.Order{},
		roles:    map[string]bool{},
		revoked:  map[string]int{},
	}
}

func (f *fakeStore) Health(context.Context) error { return nil }

func (f *fakeStore) CreateAccount(_ context.Context, acc models.NewAccount) (*models.User, error) {
	if _, ok := f.users[acc.Email]; ok {
		return nil, db.ErrDuplicateEmail
	}
	u := &models.User{ID: uuid.NewString(), Email: acc.Email, PasswordHash: acc.PasswordHash}
	if acc.GrantAdmin {
		u.Role = models.RoleAdmin
	}
	f.users[acc.Email] = u
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CreateRefreshToken(context.Context, string, string, time.Time, string, string) (string, error) {
	return uuid.NewString(), nil
}

func (f *fakeStore) SetAdminRole(_ context.Context, userID string, admin bool) error {
	f.roles[userID] = admin
	return nil
}

func (f *fakeStore) RevokeUserRefreshTokens(_ context.Context, userID string) (int64, error) {
	f.revoked[userID]++
	return 2, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) AddCartItem(context.Context, string, string, int) error { return f.addCartErr }

func (f *fakeStore) GetCartItems(context.Context, string) ([]models.CartItem, error) {
	return []models.CartItem{}, nil
}

func (f *fakeStore) Checkout(_ context.Context, userID string, _ *models.Address, _ float64) (*models.Order, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	o := &models.Order{
		ID:               uuid.NewString(),
		UserID:           userID,
		Status:           models.OrderStatusPendingPayment,
		Total:            115,
		PaymentReference: uuid.NewString(),
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetOrderByReference(_ context.Context, ref string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.PaymentReference == ref {
			return o, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) MarkPaid(_ context.Context, orderID string, _ *models.PaymentConfirmation, _ *string) (*db.PaymentResult, error) {
	f.paidCalls++
	if f.paidResult != nil {
		return f.paidResult, nil
	}
	o := f.orders[orderID]
	o.Status = models.OrderStatusPaid
	return &db.PaymentResult{Order: o, Applied: true}, nil
}

func (f *fakeStore) CancelOrder(_ context.Context, orderID string, _, _ *string, _ string) (*models.Order, error) {
	f.cancelCalls++
	o := f.orders[orderID]
	o.Status = models.OrderStatusCancelled
	return o, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID string, next models.OrderStatus, _ *string, _ string) (*models.Order, error) {
	f.statusCalls = append(f.statusCalls, next)
	o := f.orders[orderID]
	o.Status = next
	return o, nil
}

func (f *fakeStore) RequestWithdrawal(_ context.Context, userID string, req models.WithdrawalRequest) (*models.Withdrawal, error) {
	if f.withdrawErr != nil {
		return nil, f.withdrawErr
	}
	return &models.Withdrawal{ID: uuid.NewString(), UserID: userID, Amount: req.Amount, Status: models.WithdrawalPending}, nil
}

func (f *fakeStore) GetDownline(_ context.Context, _ string, maxDepth int) ([]network.Member, error) {
	f.downDepth = maxDepth
	return f.downline, nil
}

func (f *fakeStore) ListRanks(context.Context) ([]models.Rank, error) {
	return []models.Rank{
		{ID: 1, Name: "Starter", Level: 1, CommissionRate: 5},
		{ID: 2, Name: "Bronze", Level: 2, PVThreshold: 100, GVThreshold: 500, CommissionRate: 8},
	}, nil
}

func (f *fakeStore) GetBalance(context.Context, string) (*models.Balance, error) {
	return &models.Balance{TotalEarned: 300, Withdrawn: 100, PendingPayouts: 50, Available: 150}, nil
}

func (f *fakeStore) CountDirectReferrals(context.Context, string) (int, error) { return 2, nil }

func (f *fakeStore) ListUserOrders(_ context.Context, userID string, _ models.ListParams) ([]models.Order, int, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) GetAdminStatistics(context.Context) (*models.AdminStatistics, error) {
	return &models.AdminStatistics{}, nil
}

func testConfig() config.Config {
	return config.Config{
		TaxRate:             0.15,
		Currency:            "ZAR",
		MinWithdrawal:       100,
		DefaultNetworkDepth: 3,
		MaxNetworkDepth:     10,
	}
}

func newTestRouter(t *testing.T, store Store) (*gin.Engine, *Handler) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	pf := payfast.NewClient(config.PayFastConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  testPassphrase,
		Sandbox:     true,
	})
	h := NewHandler(store, testConfig(), nil, nil, pf, nil)
	r := gin.New()
	h.RegisterRoutes(r)
	return r, h
}

func tokenFor(t *testing.T, h *Handler, id, role string) string {
	t.Helper()
	token, _, err := h.generateJWTToken(&models.User{ID: id, Email: id + "@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func perform(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestRequireStoreWithoutDatabase(t *testing.T) {
	r, h := newTestRouter(t, nil)

	w := perform(r, http.MethodGet, "/api/products", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	rr := gin.New()
	rr.GET("/ready", h.Ready)
	w = perform(rr, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		db.ErrNotFound:            http.StatusNotFound,
		db.ErrInvalidInput:        http.StatusBadRequest,
		db.ErrEmptyCart:           http.StatusBadRequest,
		db.ErrInsufficientBalance: http.StatusBadRequest,
		db.ErrInsufficientStock:   http.StatusConflict,
		db.ErrInvalidTransition:   http.StatusConflict,
		db.ErrVersionMismatch:     http.StatusConflict,
		db.ErrRankInUse:           http.StatusConflict,
		context.DeadlineExceeded:  http.StatusGatewayTimeout,
		assert.AnError:            http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
