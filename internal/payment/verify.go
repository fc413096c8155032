package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fundbridge/fundbridge/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSignatureMismatch indicates the callback signature did not match the
// recomputed HMAC. Callers must treat it as definitive and never retry.
var ErrSignatureMismatch = errors.New("payment: signature verification failed")

// ErrOrderNotFound indicates no contribution exists for the gateway order id.
var ErrOrderNotFound = errors.New("payment: contribution not found for order")

// ErrTerminalState indicates the contribution already reached a terminal
// state that conflicts with the callback (different payment id, or failed).
var ErrTerminalState = errors.New("payment: contribution already finalized")

// Signature computes the hex HMAC-SHA256 the gateway signs callbacks with:
// HMAC(secret, orderID + "|" + paymentID).
func Signature(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerificationService validates payment callbacks and applies the resulting
// contribution status transition.
type VerificationService struct {
	db     *gorm.DB
	secret []byte
	now    func() time.Time
}

// NewVerificationService constructs a VerificationService. secret is the
// gateway key secret shared for callback signing.
func NewVerificationService(db *gorm.DB, secret []byte) *VerificationService {
	return &VerificationService{db: db, secret: secret, now: time.Now}
}

// Verify recomputes the callback HMAC and, on an exact match, transitions the
// contribution for orderID from pending to completed, assigning the payment
// id, signature, and a receipt number exactly once. The completion is
// idempotent: replaying the same valid callback succeeds without repeating
// side effects. On mismatch the contribution (when present and still
// pending) is marked failed and ErrSignatureMismatch is returned; the
// client-declared outcome is never trusted.
func (s *VerificationService) Verify(ctx context.Context, orderID, paymentID, signature string) error {
	expected := Signature(s.secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.markFailed(ctx, orderID)
		return ErrSignatureMismatch
	}

	var contribution models.Contribution
	errFind := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&contribution).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("payment: load contribution: %w", errFind)
	}

	if contribution.Status == models.StatusCompleted {
		if contribution.PaymentID == paymentID {
			return nil
		}
		return ErrTerminalState
	}
	if contribution.Status != models.StatusPending {
		return ErrTerminalState
	}

	now := s.now().UTC()
	updates := map[string]any{
		"payment_id": paymentID,
		"signature":  signature,
		"status":     models.StatusCompleted,
		"updated_at": now,
	}
	if contribution.ReceiptNumber == "" {
		updates["receipt_number"] = receiptNumber(contribution.ID, now)
	}

	// Guarded on the unique order id and the pending status: a concurrent
	// duplicate callback loses the update race and falls through to the
	// replay check below.
	res := s.db.WithContext(ctx).Model(&models.Contribution{}).
		Where("order_id = ? AND status = ?", orderID, models.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("payment: complete contribution: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Contribution
		if errReload := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&current).Error; errReload != nil {
			return fmt.Errorf("payment: reload contribution: %w", errReload)
		}
		if current.Status == models.StatusCompleted && current.PaymentID == paymentID {
			return nil
		}
		return ErrTerminalState
	}
	return nil
}

// markFailed records a definitive verification failure. Only pending rows
// transition; terminal states are left untouched.
func (s *VerificationService) markFailed(ctx context.Context, orderID string) {
	errUpdate := s.db.WithContext(ctx).Model(&models.Contribution{}).
		Where("order_id = ? AND status = ?", orderID, models.StatusPending).
		Updates(map[string]any{
			"status":     models.StatusFailed,
			"updated_at": s.now().UTC(),
		}).Error
	if errUpdate != nil {
		log.WithError(errUpdate).Warnf("failed to mark contribution failed for order=%s", orderID)
	}
}

// receiptNumber derives a unique receipt identifier from the completion date
// and the contribution's primary key.
func receiptNumber(id uint64, now time.Time) string {
	return fmt.Sprintf("RCP%s%06d", now.Format("20060102"), id)
}
