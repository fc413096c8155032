package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fundbridge/fundbridge/internal/db"
	"github.com/fundbridge/fundbridge/internal/models"
)

// ContributionHandler serves contribution records and aggregates.
type ContributionHandler struct {
	db         *gorm.DB
	production bool
}

// NewContributionHandler constructs a ContributionHandler.
func NewContributionHandler(conn *gorm.DB, production bool) *ContributionHandler {
	return &ContributionHandler{db: conn, production: production}
}

const recentContributionLimit = 5

// claimRequest annotates a pending order with pledge details and ownership.
type claimRequest struct {
	OrderID          string `json:"orderId"`
	ContributionType string `json:"contributionType"`
	Category         string `json:"category"`
	Message          string `json:"message"`
}

var allowedContributionTypes = map[string]bool{
	"one-time":  true,
	"monthly":   true,
	"quarterly": true,
	"yearly":    true,
}

// Claim attaches pledge metadata and the authenticated user to a pending
// contribution created through the order endpoint. Guest orders stay
// unclaimed; claiming someone else's owned order is rejected.
func (h *ContributionHandler) Claim(c *gin.Context) {
	var body claimRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(body.OrderID) == "" {
		respondError(c, http.StatusBadRequest, "orderId is required")
		return
	}
	if body.ContributionType != "" && !allowedContributionTypes[body.ContributionType] {
		respondError(c, http.StatusBadRequest, "invalid contribution type")
		return
	}

	userID := currentUserID(c)

	var contribution models.Contribution
	errFind := h.db.WithContext(c.Request.Context()).
		Where("order_id = ?", body.OrderID).
		First(&contribution).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "contribution not found")
			return
		}
		respondErrorDetail(c, http.StatusInternalServerError, "failed to load contribution", errFind, h.production)
		return
	}
	if contribution.UserID != nil && *contribution.UserID != userID {
		respondError(c, http.StatusForbidden, "contribution belongs to another account")
		return
	}

	updates := map[string]any{
		"user_id": userID,
	}
	if body.ContributionType != "" {
		updates["contribution_type"] = body.ContributionType
	}
	if body.Category != "" {
		updates["category"] = body.Category
	}
	if body.Message != "" {
		updates["message"] = body.Message
	}

	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(&models.Contribution{}).
		Where("id = ?", contribution.ID).
		Updates(updates).Error
	if errUpdate != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "failed to update contribution", errUpdate, h.production)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "contribution updated",
		"id":      contribution.ID,
	})
}

// List returns the caller's contributions, or every contribution for admins.
// Optional filters: status, category, and (admin only) email substring.
func (h *ContributionHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Contribution{})

	admin := isAdmin(c)
	if !admin {
		query = query.Where("user_id = ?", currentUserID(c))
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if email := strings.TrimSpace(c.Query("email")); email != "" && admin {
		pattern := db.NormalizeLikePattern(h.db, "%"+email+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "email"), pattern)
	}

	var contributions []models.Contribution
	if errList := query.Order("created_at DESC").Find(&contributions).Error; errList != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "failed to list contributions", errList, h.production)
		return
	}

	items := make([]gin.H, 0, len(contributions))
	for i := range contributions {
		items = append(items, contributionPayload(&contributions[i], true))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "contributions fetched",
		"count":         len(items),
		"contributions": items,
	})
}

// Get returns a single contribution. Owners see their own records; admins see
// everything. A record owned by someone else is forbidden, not hidden.
func (h *ContributionHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		respondError(c, http.StatusBadRequest, "invalid contribution id")
		return
	}

	var contribution models.Contribution
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ?", id).
		First(&contribution).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "contribution not found")
			return
		}
		respondErrorDetail(c, http.StatusInternalServerError, "failed to load contribution", errFind, h.production)
		return
	}

	if !isAdmin(c) {
		if contribution.UserID == nil || *contribution.UserID != currentUserID(c) {
			respondError(c, http.StatusForbidden, "access denied")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "contribution fetched",
		"contribution": contributionPayload(&contribution, true),
	})
}

// Stats returns the public fundraising aggregate: completed contribution
// count, total raised, and the most recent completed contributions with
// anonymity applied.
func (h *ContributionHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	var totals struct {
		Count int64
		Sum   int64
	}
	errAgg := h.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS sum").
		Where("status = ?", models.StatusCompleted).
		Scan(&totals).Error
	if errAgg != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "failed to compute stats", errAgg, h.production)
		return
	}

	var recent []models.Contribution
	errRecent := h.db.WithContext(ctx).
		Where("status = ?", models.StatusCompleted).
		Order("created_at DESC").
		Limit(recentContributionLimit).
		Find(&recent).Error
	if errRecent != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "failed to load recent contributions", errRecent, h.production)
		return
	}

	items := make([]gin.H, 0, len(recent))
	for i := range recent {
		items = append(items, contributionPayload(&recent[i], false))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "stats fetched",
		"totalCount":  totals.Count,
		"totalRaised": totals.Sum,
		"recent":      items,
	})
}

// Delete removes a contribution record. Admin only.
func (h *ContributionHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		respondError(c, http.StatusBadRequest, "invalid contribution id")
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Where("id = ?", id).
		Delete(&models.Contribution{})
	if result.Error != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "failed to delete contribution", result.Error, h.production)
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "contribution not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "contribution deleted"})
}

// contributionPayload converts a contribution to its response shape. When
// identified is false the contributor's contact details are replaced with the
// anonymous placeholder regardless of the stored record.
func contributionPayload(contribution *models.Contribution, identified bool) gin.H {
	name := contribution.FullName
	if !identified && contribution.IsAnonymous {
		name = "Anonymous"
	}
	payload := gin.H{
		"id":               contribution.ID,
		"name":             name,
		"amount":           contribution.Amount,
		"tipAmount":        contribution.TipAmount,
		"totalAmount":      contribution.TotalAmount,
		"currency":         contribution.Currency,
		"contributionType": contribution.ContributionType,
		"category":         contribution.Category,
		"message":          contribution.Message,
		"isAnonymous":      contribution.IsAnonymous,
		"status":           contribution.Status,
		"createdAt":        contribution.CreatedAt,
	}
	if identified {
		payload["email"] = contribution.Email
		payload["phone"] = contribution.Phone
		payload["orderId"] = contribution.OrderID
		payload["paymentId"] = contribution.PaymentID
		payload["receiptNumber"] = contribution.ReceiptNumber
		payload["userId"] = contribution.UserID
	}
	return payload
}
