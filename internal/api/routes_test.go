package api

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/Pixelkingsa/consultant-connect/internal/network"
	"github.com/Pixelkingsa/consultant-connect/internal/payfast"
)

func TestAuthMiddlewareRejects(t *testing.T) {
	r, _ := newTestRouter(t, newFakeStore())

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/api/cart", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/api/cart", nil, "not-a-jwt").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	r, h := newTestRouter(t, newFakeStore())

	w := perform(r, http.MethodGet, "/api/admin/stats", nil, tokenFor(t, h, uuid.NewString(), ""))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodGet, "/api/admin/stats", nil, tokenFor(t, h, uuid.NewString(), models.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupAndLogin(t *testing.T) {
	store := newFakeStore()
	r, _ := newTestRouter(t, store)

	signup := models.SignupRequest{Email: "thandi@example.com", Password: "correct-horse", FullName: "Thandi"}
	w := perform(r, http.MethodPost, "/api/auth/signup", signup, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.AuthResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "thandi@example.com", resp.User.Email)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims["user_id"])

	w = perform(r, http.MethodPost, "/api/auth/signup", signup, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: signup.Email, Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "nobody@example.com", Password: "whatever"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: signup.Email, Password: signup.Password}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddToCartValidation(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	token := tokenFor(t, h, uuid.NewString(), "")

	w := perform(r, http.MethodPost, "/api/cart/items", jsonBody{"product_id": "abc", "quantity": 1}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/api/cart/items", jsonBody{"product_id": uuid.NewString(), "quantity": 0}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	store.addCartErr = db.ErrInsufficientStock
	w = perform(r, http.MethodPost, "/api/cart/items", jsonBody{"product_id": uuid.NewString(), "quantity": 5}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp models.ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "Insufficient stock", errResp.Error)

	store.addCartErr = nil
	w = perform(r, http.MethodPost, "/api/cart/items", jsonBody{"product_id": uuid.NewString(), "quantity": 2}, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckout(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	userID := uuid.NewString()
	token := tokenFor(t, h, userID, "")
	store.profiles[userID] = &models.Profile{ID: userID, Email: "sipho@example.com", FullName: "Sipho Dlamini"}

	store.checkoutErr = db.ErrEmptyCart
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/api/checkout", nil, token).Code)

	store.checkoutErr = db.ErrInsufficientStock
	assert.Equal(t, http.StatusConflict, perform(r, http.MethodPost, "/api/checkout", nil, token).Code)

	store.checkoutErr = nil
	w := perform(r, http.MethodPost, "/api/checkout", nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CheckoutResponse
	decode(t, w, &resp)
	assert.Equal(t, models.OrderStatusPendingPayment, resp.Order.Status)
	assert.Equal(t, payfast.SandboxURL, resp.Payment.Action)
	assert.Equal(t, "115.00", resp.Payment.Values["amount"])
	assert.Equal(t, resp.Order.PaymentReference, resp.Payment.Values["m_payment_id"])
	assert.Equal(t, "sipho@example.com", resp.Payment.Values["email_address"])
}

func TestGetMyOrderHidesOtherUsersOrders(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	owner, other := uuid.NewString(), uuid.NewString()
	orderID := uuid.NewString()
	store.orders[orderID] = &models.Order{ID: orderID, UserID: owner, Status: models.OrderStatusPendingPayment}

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/api/orders/"+orderID, nil, tokenFor(t, h, owner, "")).Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/api/orders/"+orderID, nil, tokenFor(t, h, other, "")).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, "/api/orders/42", nil, tokenFor(t, h, owner, "")).Code)
}

func TestRequestWithdrawal(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	token := tokenFor(t, h, uuid.NewString(), "")
	body := func(amount float64) models.WithdrawalRequest {
		return models.WithdrawalRequest{Amount: amount, BankName: "FNB", AccountHolder: "T Nkosi", AccountNumber: "62000012345"}
	}

	w := perform(r, http.MethodPost, "/api/withdrawals", body(50), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp models.ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, "Amount too small", errResp.Error)

	store.withdrawErr = db.ErrInsufficientBalance
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/api/withdrawals", body(150), token).Code)

	store.withdrawErr = nil
	w = perform(r, http.MethodPost, "/api/withdrawals", body(150), token)
	require.Equal(t, http.StatusCreated, w.Code)
	var wd models.Withdrawal
	decode(t, w, &wd)
	assert.Equal(t, models.WithdrawalPending, wd.Status)
	assert.Equal(t, 150.0, wd.Amount)
}

func TestGetNetwork(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	root := uuid.NewString()
	a, b := uuid.NewString(), uuid.NewString()
	store.downline = []network.Member{
		{ID: root, FullName: "Root", RankName: "Bronze", Depth: 0},
		{ID: a, UplineID: &root, FullName: "A", RankName: "Starter", PersonalVolume: 40, Depth: 1},
		{ID: b, UplineID: &a, FullName: "B", RankName: "Starter", PersonalVolume: 10.5, Depth: 2},
	}
	token := tokenFor(t, h, root, "")

	w := perform(r, http.MethodGet, "/api/network?depth=99", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 10, store.downDepth)

	var tree network.Tree
	decode(t, w, &tree)
	require.NotNil(t, tree.Root)
	assert.Equal(t, root, tree.Root.ID)
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, b, tree.Root.Children[0].Children[0].ID)
	assert.Equal(t, 2, tree.Stats.TotalMembers)
	assert.Equal(t, 50.5, tree.Stats.TotalPV)

	perform(r, http.MethodGet, "/api/network", nil, token)
	assert.Equal(t, 3, store.downDepth)

	store.downline = nil
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/api/network", nil, token).Code)
}

func TestDashboard(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	userID := uuid.NewString()
	store.profiles[userID] = &models.Profile{ID: userID, FullName: "Lerato", RankName: "Starter", PersonalVolume: 50, GroupVolume: 500}
	orderID := uuid.NewString()
	store.orders[orderID] = &models.Order{ID: orderID, UserID: userID, Status: models.OrderStatusPaid}
	token := tokenFor(t, h, userID, "")

	w := perform(r, http.MethodGet, "/api/dashboard", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d models.Dashboard
	decode(t, w, &d)
	assert.Equal(t, "Lerato", d.Profile.FullName)
	assert.Equal(t, 300.0, d.TotalEarned)
	assert.Equal(t, 150.0, d.AvailableBalance)
	assert.Equal(t, 50.0, d.PendingPayouts)
	assert.Equal(t, 2, d.DirectReferrals)
	assert.Len(t, d.RecentOrders, 1)
	require.NotNil(t, d.RankProgress.NextRank)
	assert.Equal(t, "Bronze", d.RankProgress.NextRank.Name)

	w = perform(r, http.MethodGet, "/api/profile/rank", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.RankProgress
	decode(t, w, &p)
	assert.Equal(t, 50.0, p.PVProgress)
	assert.Equal(t, 100.0, p.GVProgress)
	assert.Equal(t, 50.0, p.OverallProgress)
}

// itn builds a signed notification body; blank values stay in the signed payload.
func itn(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, pairs[i]+"="+url.QueryEscape(pairs[i+1]))
	}
	payload := strings.Join(parts, "&")
	sum := md5.Sum([]byte(payload + "&passphrase=" + testPassphrase))
	return payload + "&signature=" + hex.EncodeToString(sum[:])
}

func postITN(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/payfast/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPayFastNotify(t *testing.T) {
	store := newFakeStore()
	r, _ := newTestRouter(t, store)
	orderID, ref := uuid.NewString(), uuid.NewString()
	store.orders[orderID] = &models.Order{ID: orderID, UserID: uuid.NewString(), Status: models.OrderStatusPendingPayment, Total: 516.9, PaymentReference: ref}

	w := postITN(r, "m_payment_id="+ref+"&amount_gross=516.90&signature=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, store.paidCalls)

	w = postITN(r, itn("m_payment_id", ref, "payment_status", "COMPLETE", "amount_gross", "1.00", "merchant_id", "10000100"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, store.paidCalls, "amount mismatch must not settle the order")

	w = postITN(r, itn("m_payment_id", "unknown", "payment_status", "COMPLETE", "amount_gross", "516.90", "merchant_id", "10000100"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, store.paidCalls)

	w = postITN(r, itn("m_payment_id", ref, "pf_payment_id", "1089250", "payment_status", "COMPLETE", "amount_gross", "516.90",
		"name_last", "", "custom_str1", "", "merchant_id", "10000100"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.paidCalls)
	assert.Equal(t, models.OrderStatusPaid, store.orders[orderID].Status)
}

func TestPayFastNotifyCancelled(t *testing.T) {
	store := newFakeStore()
	r, _ := newTestRouter(t, store)
	orderID, ref := uuid.NewString(), uuid.NewString()
	store.orders[orderID] = &models.Order{ID: orderID, Status: models.OrderStatusPendingPayment, Total: 100, PaymentReference: ref}

	w := postITN(r, itn("m_payment_id", ref, "payment_status", "CANCELLED", "amount_gross", "100.00", "merchant_id", "10000100"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.cancelCalls)
	assert.Zero(t, store.paidCalls)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	admin := tokenFor(t, h, uuid.NewString(), models.RoleAdmin)
	orderID := uuid.NewString()
	store.orders[orderID] = &models.Order{ID: orderID, UserID: uuid.NewString(), Status: models.OrderStatusPaid}
	path := "/api/admin/orders/" + orderID + "/status"

	w := perform(r, http.MethodPut, path, jsonBody{"status": "teleported"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	store.paidResult = &db.PaymentResult{Order: store.orders[orderID], Applied: false}
	w = perform(r, http.MethodPut, path, jsonBody{"status": "paid"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, store.paidCalls)

	w = perform(r, http.MethodPut, path, jsonBody{"status": "processing", "reason": "packed"}, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.OrderStatus{models.OrderStatusProcessing}, store.statusCalls)
}

// jsonBody is a JSON request body.
type jsonBody = map[string]interface{}

func TestAdminSetRoleRevokesSessionsOnDemotion(t *testing.T) {
	store := newFakeStore()
	r, h := newTestRouter(t, store)
	adminID, targetID := uuid.NewString(), uuid.NewString()
	token := tokenFor(t, h, adminID, models.RoleAdmin)
	path := "/api/admin/customers/" + targetID + "/role"

	w := perform(r, http.MethodPut, path, jsonBody{"admin": true}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, store.roles[targetID])
	assert.Zero(t, store.revoked[targetID])

	w = perform(r, http.MethodPut, path, jsonBody{"admin": false}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, store.roles[targetID])
	assert.Equal(t, 1, store.revoked[targetID])

	w = perform(r, http.MethodPut, "/api/admin/customers/"+adminID+"/role", jsonBody{"admin": false}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, store.revoked[adminID])
}
