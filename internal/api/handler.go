package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/events"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/Pixelkingsa/consultant-connect/internal/network"
	"github.com/Pixelkingsa/consultant-connect/internal/payfast"
	"github.com/Pixelkingsa/consultant-connect/internal/services"
)

const (
	requestTimeout = 10 * time.Second
	adminTimeout   = 15 * time.Second
	uploadTimeout  = 30 * time.Second
)

// AccountStore persists users, roles and refresh tokens.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc models.NewAccount) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetAdminRole(ctx context.Context, userID string, admin bool) error
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) (int64, error)
}

// CatalogStore persists products.
type CatalogStore interface {
	ListProducts(ctx context.Context, params models.ProductListParams) (*models.ProductListResponse, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error)
	CreateProduct(ctx context.Context, p models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, p models.Product) (*models.Product, error)
	SetProductImage(ctx context.Context, id, imageURL string) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// CartStore persists cart lines.
type CartStore interface {
	GetCartItems(ctx context.Context, userID string) ([]models.CartItem, error)
	AddCartItem(ctx context.Context, userID, productID string, quantity int) error
	SetCartItemQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error
}

// OrderStore persists sales and their lifecycle.
type OrderStore interface {
	Checkout(ctx context.Context, userID string, shipping *models.Address, taxRate float64) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByReference(ctx context.Context, ref string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string, params models.ListParams) ([]models.Order, int, error)
	MarkPaid(ctx context.Context, orderID string, payment *models.PaymentConfirmation, changedBy *string) (*db.PaymentResult, error)
	CancelOrder(ctx context.Context, orderID string, ownerID, changedBy *string, reason string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, next models.OrderStatus, changedBy *string, reason string) (*models.Order, error)
	AdminListOrders(ctx context.Context, req models.AdminOrderListRequest) (*models.AdminOrderListResponse, error)
	AdminGetOrder(ctx context.Context, id string) (*models.AdminOrderDetailResponse, error)
}

// ConsultantStore persists profiles and the referral tree.
type ConsultantStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error)
	AdminUpdateCustomer(ctx context.Context, userID string, req models.AdminUpdateCustomerRequest) (*models.Profile, error)
	CountDirectReferrals(ctx context.Context, userID string) (int, error)
	ListCustomers(ctx context.Context, params models.CustomerListParams) (*models.CustomerListResponse, error)
	GetCustomer(ctx context.Context, userID string) (*models.CustomerSummary, error)
	GetDownline(ctx context.Context, rootID string, maxDepth int) ([]network.Member, error)
	GetUpline(ctx context.Context, userID string) ([]models.Profile, error)
}

// RankStore persists the compensation plan.
type RankStore interface {
	ListRanks(ctx context.Context) ([]models.Rank, error)
	CreateRank(ctx context.Context, req models.RankRequest) (*models.Rank, error)
	UpdateRank(ctx context.Context, id int, req models.UpdateRankRequest) (*models.Rank, error)
	DeleteRank(ctx context.Context, id int) error
	MoveRank(ctx context.Context, id int, direction string) ([]models.Rank, error)
}

// LedgerStore persists commissions and payouts.
type LedgerStore interface {
	ListBonuses(ctx context.Context, userID string, params models.ListParams) ([]models.Bonus, int, error)
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	RequestWithdrawal(ctx context.Context, userID string, req models.WithdrawalRequest) (*models.Withdrawal, error)
	ListUserWithdrawals(ctx context.Context, userID string, params models.ListParams) ([]models.Withdrawal, int, error)
	AdminListWithdrawals(ctx context.Context, params models.WithdrawalListParams) (*models.WithdrawalListResponse, error)
	UpdateWithdrawalStatus(ctx context.Context, id string, next models.WithdrawalStatus, notes string, adminID string) (*models.Withdrawal, error)
	GetAdminStatistics(ctx context.Context) (*models.AdminStatistics, error)
}

// Store is everything the handlers need from persistence. *db.Database implements it.
type Store interface {
	AccountStore
	CatalogStore
	CartStore
	OrderStore
	ConsultantStore
	RankStore
	LedgerStore
	Health(ctx context.Context) error
}

// ImageStore saves uploaded images and returns their public URL.
type ImageStore interface {
	SaveImage(ctx context.Context, prefix string, fh *multipart.FileHeader) (string, error)
}

var _ Store = (*db.Database)(nil)

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	store    Store
	cfg      config.Config
	images   ImageStore
	notifier *services.Notifier
	payfast  *payfast.Client
	broker   *events.Broker
}

// NewHandler creates a new handler instance. store may be nil when the database is
// unreachable; every route except the health checks then answers 503.
func NewHandler(store Store, cfg config.Config, images ImageStore, notifier *services.Notifier, pf *payfast.Client, broker *events.Broker) *Handler {
	if broker == nil {
		broker = events.NewBroker(16)
	}
	return &Handler{
		store:    store,
		cfg:      cfg,
		images:   images,
		notifier: notifier,
		payfast:  pf,
		broker:   broker,
	}
}

// Ready checks the database connection
func (h *Handler) Ready(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "Database connection failed",
			Message: "database not initialised",
		})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "Database connection failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "consultant-connect",
		"timestamp": time.Now().UTC(),
	})
}

// RequireStore answers 503 while the database is unavailable.
func (h *Handler) RequireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.store == nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:   "Service unavailable",
				Message: "database not initialised",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// respondError maps repository errors onto HTTP statuses. Unexpected failures are logged.
func respondError(c *gin.Context, title string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		fields := map[string]interface{}{"path": c.FullPath(), "method": c.Request.Method}
		if uid, ok := GetUserID(c); ok {
			fields["user_id"] = uid
		}
		if rid := c.GetString("request_id"); rid != "" {
			fields["request_id"] = rid
		}
		logging.Error(title, err, fields)
	}
	c.JSON(status, models.ErrorResponse{Error: title, Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrInvalidInput),
		errors.Is(err, db.ErrInvalidReferral),
		errors.Is(err, db.ErrEmptyCart),
		errors.Is(err, db.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrConflict),
		errors.Is(err, db.ErrInsufficientStock),
		errors.Is(err, db.ErrInvalidTransition),
		errors.Is(err, db.ErrVersionMismatch),
		errors.Is(err, db.ErrDuplicateEmail),
		errors.Is(err, db.ErrRankInUse):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// requireUser extracts the caller's id, answering 401 when the token carried none.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := GetUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid user",
			Message: "Could not extract user ID from token",
		})
		return "", false
	}
	return userID, true
}

// uuidParam reads a UUID path parameter, answering 400 when it is malformed.
func uuidParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid ID format",
			Message: name + " must be a valid UUID",
		})
		return "", false
	}
	return id.String(), true
}

func paged(items interface{}, total int, p models.ListParams) gin.H {
	return gin.H{
		"items":       items,
		"total":       total,
		"page":        p.Page,
		"limit":       p.Limit,
		"total_pages": models.TotalPages(total, p.Limit),
	}
}
