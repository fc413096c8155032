package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fundbridge/fundbridge/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidAmount indicates a non-positive base amount.
var ErrInvalidAmount = errors.New("payment: amount must be greater than zero")

// ErrGateway indicates the external gateway call failed; no local state is
// created when it is returned.
var ErrGateway = errors.New("payment: gateway unavailable")

// Placeholder contact data substituted into gateway-facing metadata when the
// contributor opted to stay anonymous. The owned record keeps true identity.
const (
	anonymousName  = "Anonymous"
	anonymousEmail = "anonymous@example.com"
)

// DefaultCurrency is the gateway settlement currency.
const DefaultCurrency = "INR"

// OrderRequest carries contributor details and the pledged amounts.
type OrderRequest struct {
	Name      string
	Email     string
	Phone     string
	Address   string
	Amount    int64 // Base amount in currency major units.
	Tip       int   // Tip percent; 0 means the configured default.
	Anonymous bool
	UserID    *uint64 // Owner when the request carried a valid session.
}

// OrderResult is returned to the client to drive the checkout widget. It
// never carries the gateway secret.
type OrderResult struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	KeyID       string
	TipAmount   int64
	TotalAmount int64
}

// OrderService computes totals and creates gateway orders, persisting a
// pending contribution only after the gateway round trip succeeds.
type OrderService struct {
	db         *gorm.DB
	gateway    OrderCreator
	keyID      string
	tipPercent int
	now        func() time.Time
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, gateway OrderCreator, keyID string, tipPercent int) *OrderService {
	return &OrderService{
		db:         db,
		gateway:    gateway,
		keyID:      keyID,
		tipPercent: tipPercent,
		now:        time.Now,
	}
}

// ComputeTip returns the rounded tip for a base amount and percent.
func ComputeTip(amount int64, tipPercent int) int64 {
	return int64(math.Round(float64(amount) * float64(tipPercent) / 100))
}

// CreateOrder validates the amount, computes tip and total, creates the
// gateway order tagged with an idempotent receipt identifier, and records a
// pending contribution linked to the gateway order id.
func (s *OrderService) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tipPercent := req.Tip
	if tipPercent <= 0 {
		tipPercent = s.tipPercent
	}
	tipAmount := ComputeTip(req.Amount, tipPercent)
	totalAmount := req.Amount + tipAmount

	notes := s.buildNotes(req)
	receipt := fmt.Sprintf("receipt_%d", s.now().UnixMilli())

	order, errCreate := s.gateway.CreateOrder(ctx, totalAmount*100, DefaultCurrency, receipt, notes)
	if errCreate != nil {
		log.WithError(errCreate).Warn("gateway order creation failed")
		return nil, fmt.Errorf("%w: %s", ErrGateway, "order creation failed")
	}

	notesJSON, errMarshal := json.Marshal(notes)
	if errMarshal != nil {
		return nil, fmt.Errorf("payment: marshal order notes: %w", errMarshal)
	}

	now := s.now().UTC()
	contribution := models.Contribution{
		UserID:      req.UserID,
		FullName:    strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		Amount:      req.Amount,
		TipAmount:   tipAmount,
		TotalAmount: totalAmount,
		IsAnonymous: req.Anonymous,
		OrderID:     order.ID,
		Status:      models.StatusPending,
		Currency:    order.Currency,
		Notes:       datatypes.JSON(notesJSON),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errPersist := s.db.WithContext(ctx).Create(&contribution).Error; errPersist != nil {
		return nil, fmt.Errorf("payment: persist contribution: %w", errPersist)
	}

	return &OrderResult{
		OrderID:     order.ID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		KeyID:       s.keyID,
		TipAmount:   tipAmount,
		TotalAmount: totalAmount,
	}, nil
}

// buildNotes assembles gateway-facing metadata, honoring the anonymity flag.
func (s *OrderService) buildNotes(req OrderRequest) map[string]any {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if req.Anonymous {
		name = anonymousName
		email = anonymousEmail
	}
	return map[string]any{
		"name":      name,
		"email":     email,
		"phone":     strings.TrimSpace(req.Phone),
		"anonymous": fmt.Sprintf("%t", req.Anonymous),
	}
}
