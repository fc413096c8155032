package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fundbridge/fundbridge/internal/db"
	"github.com/fundbridge/fundbridge/internal/models"
	"gorm.io/gorm"
)

// fakeGateway records calls and returns a canned order or error.
type fakeGateway struct {
	calls   int
	lastArg map[string]any
	fail    bool
}

func (f *fakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, notes map[string]any) (*GatewayOrder, error) {
	f.calls++
	f.lastArg = map[string]any{"amount": amountMinor, "currency": currency, "receipt": receipt, "notes": notes}
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return &GatewayOrder{ID: fmt.Sprintf("order_fake_%d", f.calls), AmountMinor: amountMinor, Currency: currency}, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "payment-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestComputeTip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount  int64
		percent int
		want    int64
	}{
		{2500, 18, 450},
		{100, 18, 18},
		{333, 18, 60},
		{1, 18, 0},
		{1000, 0, 0},
	}
	for _, test := range tests {
		if got := ComputeTip(test.amount, test.percent); got != test.want {
			t.Errorf("ComputeTip(%d, %d) = %d, want %d", test.amount, test.percent, got, test.want)
		}
	}
}

func TestCreateOrder_ComputesTotals(t *testing.T) {
	conn := openTestDB(t)
	gateway := &fakeGateway{}
	svc := NewOrderService(conn, gateway, "rzp_test_key", 18)

	result, err := svc.CreateOrder(context.Background(), OrderRequest{
		Name:   "Asha Rao",
		Email:  "Asha@Example.org",
		Phone:  "+919876543210",
		Amount: 2500,
		Tip:    18,
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if result.TipAmount != 450 {
		t.Fatalf("expected tip 450, got %d", result.TipAmount)
	}
	if result.TotalAmount != 2950 {
		t.Fatalf("expected total 2950, got %d", result.TotalAmount)
	}
	if result.AmountMinor != 295000 {
		t.Fatalf("expected minor amount 295000, got %d", result.AmountMinor)
	}
	if result.Currency != DefaultCurrency {
		t.Fatalf("expected currency %s, got %s", DefaultCurrency, result.Currency)
	}
	if result.KeyID != "rzp_test_key" {
		t.Fatalf("expected public key id in result, got %q", result.KeyID)
	}

	var contribution models.Contribution
	if errFind := conn.Where("order_id = ?", result.OrderID).First(&contribution).Error; errFind != nil {
		t.Fatalf("expected pending contribution persisted: %v", errFind)
	}
	if contribution.Status != models.StatusPending {
		t.Fatalf("expected pending status, got %s", contribution.Status)
	}
	if contribution.Email != "asha@example.org" {
		t.Fatalf("expected normalized email, got %q", contribution.Email)
	}
}

func TestCreateOrder_InvalidAmount(t *testing.T) {
	conn := openTestDB(t)
	gateway := &fakeGateway{}
	svc := NewOrderService(conn, gateway, "rzp_test_key", 18)

	for _, amount := range []int64{0, -100} {
		_, err := svc.CreateOrder(context.Background(), OrderRequest{Amount: amount})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if gateway.calls != 0 {
		t.Fatalf("expected no gateway calls for invalid amounts")
	}
}

func TestCreateOrder_DefaultTipPercent(t *testing.T) {
	conn := openTestDB(t)
	svc := NewOrderService(conn, &fakeGateway{}, "rzp_test_key", 18)

	result, err := svc.CreateOrder(context.Background(), OrderRequest{Name: "A", Email: "a@example.org", Amount: 1000})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if result.TipAmount != 180 {
		t.Fatalf("expected default 18%% tip of 180, got %d", result.TipAmount)
	}
}

func TestCreateOrder_AnonymousNotes(t *testing.T) {
	conn := openTestDB(t)
	gateway := &fakeGateway{}
	svc := NewOrderService(conn, gateway, "rzp_test_key", 18)

	result, err := svc.CreateOrder(context.Background(), OrderRequest{
		Name:      "Asha Rao",
		Email:     "asha@example.org",
		Amount:    500,
		Anonymous: true,
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	notes, ok := gateway.lastArg["notes"].(map[string]any)
	if !ok {
		t.Fatalf("expected notes map sent to gateway")
	}
	if notes["name"] != "Anonymous" || notes["email"] != "anonymous@example.com" {
		t.Fatalf("expected placeholder identity in gateway notes, got %v", notes)
	}

	// The owned record keeps the true identity.
	var contribution models.Contribution
	if errFind := conn.Where("order_id = ?", result.OrderID).First(&contribution).Error; errFind != nil {
		t.Fatalf("load contribution: %v", errFind)
	}
	if contribution.FullName != "Asha Rao" || contribution.Email != "asha@example.org" {
		t.Fatalf("expected stored identity untouched, got %q %q", contribution.FullName, contribution.Email)
	}
	var stored map[string]any
	if errUnmarshal := json.Unmarshal(contribution.Notes, &stored); errUnmarshal != nil {
		t.Fatalf("unmarshal stored notes: %v", errUnmarshal)
	}
	if stored["name"] != "Anonymous" {
		t.Fatalf("expected anonymized stored notes, got %v", stored)
	}
}

func TestCreateOrder_GatewayFailureLeavesNoState(t *testing.T) {
	conn := openTestDB(t)
	svc := NewOrderService(conn, &fakeGateway{fail: true}, "rzp_test_key", 18)

	_, err := svc.CreateOrder(context.Background(), OrderRequest{Name: "A", Email: "a@example.org", Amount: 1000})
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	var count int64
	if errCount := conn.Model(&models.Contribution{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count contributions: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no contribution rows after gateway failure, got %d", count)
	}
}
