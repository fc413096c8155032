package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fundbridge/fundbridge/internal/auth"
	"github.com/fundbridge/fundbridge/internal/config"
	"github.com/fundbridge/fundbridge/internal/db"
	"github.com/fundbridge/fundbridge/internal/models"
	"github.com/fundbridge/fundbridge/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// minPasswordLength is enforced at registration.
const minPasswordLength = 6

// invalidCredentialMessage is shared by every credential failure so responses
// do not reveal whether the email is registered.
const invalidCredentialMessage = "invalid email or password"

// AuthHandler manages registration, login, federated login, and profile
// endpoints.
type AuthHandler struct {
	db         *gorm.DB
	jwtCfg     config.JWTConfig
	verifier   auth.IdentityVerifier
	bcryptCost int
	production bool
	now        func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(conn *gorm.DB, jwtCfg config.JWTConfig, verifier auth.IdentityVerifier, bcryptCost int, production bool) *AuthHandler {
	return &AuthHandler{
		db:         conn,
		jwtCfg:     jwtCfg,
		verifier:   verifier,
		bcryptCost: bcryptCost,
		production: production,
		now:        time.Now,
	}
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a password-based account and issues a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}

	fullName := strings.TrimSpace(body.FullName)
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if fullName == "" || email == "" || body.Password == "" || body.ConfirmPassword == "" {
		respondError(c, http.StatusBadRequest, "please provide all required fields")
		return
	}
	if body.Password != body.ConfirmPassword {
		respondError(c, http.StatusBadRequest, "passwords do not match")
		return
	}
	if len(body.Password) < minPasswordLength {
		respondError(c, http.StatusBadRequest, "password must be at least 6 characters long")
		return
	}

	hash, errHash := security.HashPassword(body.Password, h.bcryptCost)
	if errHash != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "server error during registration", errHash, h.production)
		return
	}

	now := h.now().UTC()
	user := models.User{
		FullName:  fullName,
		Email:     email,
		Password:  hash,
		Role:      models.RoleUser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			respondError(c, http.StatusConflict, "user with this email already exists")
			return
		}
		respondErrorDetail(c, http.StatusInternalServerError, "server error during registration", errCreate, h.production)
		return
	}

	log.Infof("user registered: id=%d", user.ID)
	h.sendTokenResponse(c, &user, http.StatusCreated, "user registered successfully")
}

// loginRequest defines the request body for password login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an email/password pair. Unknown users, wrong
// passwords, and locked accounts all yield the same generic 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		respondError(c, http.StatusBadRequest, "please provide email and password")
		return
	}

	ctx := c.Request.Context()
	now := h.now().UTC()

	var user models.User
	errFind := h.db.WithContext(ctx).Where("email = ? AND active = ?", email, true).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, invalidCredentialMessage)
			return
		}
		respondErrorDetail(c, http.StatusInternalServerError, "server error during login", errFind, h.production)
		return
	}

	state := auth.LoginState{Attempts: user.LoginAttempts, LockUntil: user.LockUntil}
	if state.Locked(now) {
		respondError(c, http.StatusUnauthorized, invalidCredentialMessage)
		return
	}

	if user.Password == "" || !security.CheckPassword(user.Password, body.Password) {
		failed := state.Fail(now)
		if errSave := h.saveLoginState(c, user.ID, failed, nil); errSave != nil {
			respondErrorDetail(c, http.StatusInternalServerError, "server error during login", errSave, h.production)
			return
		}
		respondError(c, http.StatusUnauthorized, invalidCredentialMessage)
		return
	}

	cleared := state.Succeed()
	if errSave := h.saveLoginState(c, user.ID, cleared, &now); errSave != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "server error during login", errSave, h.production)
		return
	}
	user.LastLogin = &now

	h.sendTokenResponse(c, &user, http.StatusOK, "login successful")
}

// googleRequest defines the request body for federated login.
type googleRequest struct {
	Credential string `json:"credential"`
}

// Google verifies a Google ID token and signs the asserted identity in,
// linking or creating the local account as needed.
func (h *AuthHandler) Google(c *gin.Context) {
	var body googleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(body.Credential) == "" {
		respondError(c, http.StatusBadRequest, "google credential is required")
		return
	}

	ctx := c.Request.Context()
	identity, errVerify := h.verifier.Verify(ctx, body.Credential)
	if errVerify != nil {
		log.WithError(errVerify).Warn("google credential verification failed")
		respondError(c, http.StatusUnauthorized, "google authentication failed")
		return
	}

	user, errResolve := h.resolveFederatedUser(c, identity)
	if errResolve != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "google authentication failed", errResolve, h.production)
		return
	}

	h.sendTokenResponse(c, user, http.StatusOK, "google authentication successful")
}

// resolveFederatedUser matches the identity by federated id, links it to an
// existing email match, or creates a new pre-verified account.
func (h *AuthHandler) resolveFederatedUser(c *gin.Context, identity *auth.Identity) (*models.User, error) {
	ctx := c.Request.Context()
	now := h.now().UTC()

	var user models.User
	errByID := h.db.WithContext(ctx).Where("google_id = ?", identity.Subject).First(&user).Error
	if errByID == nil {
		updates := map[string]any{
			"profile_picture": identity.Picture,
			"last_login":      now,
			"updated_at":      now,
		}
		if errUpdate := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; errUpdate != nil {
			return nil, errUpdate
		}
		user.ProfilePicture = identity.Picture
		user.LastLogin = &now
		return &user, nil
	}
	if !errors.Is(errByID, gorm.ErrRecordNotFound) {
		return nil, errByID
	}

	errByEmail := h.db.WithContext(ctx).Where("email = ?", identity.Email).First(&user).Error
	if errByEmail == nil {
		updates := map[string]any{
			"google_id":         identity.Subject,
			"profile_picture":   identity.Picture,
			"is_email_verified": true,
			"last_login":        now,
			"updated_at":        now,
		}
		if errUpdate := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; errUpdate != nil {
			return nil, errUpdate
		}
		user.GoogleID = &identity.Subject
		user.IsEmailVerified = true
		user.LastLogin = &now
		return &user, nil
	}
	if !errors.Is(errByEmail, gorm.ErrRecordNotFound) {
		return nil, errByEmail
	}

	created := models.User{
		FullName:        identity.Name,
		Email:           identity.Email,
		GoogleID:        &identity.Subject,
		ProfilePicture:  identity.Picture,
		Role:            models.RoleUser,
		IsEmailVerified: true,
		Active:          true,
		LastLogin:       &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if errCreate := h.db.WithContext(ctx).Create(&created).Error; errCreate != nil {
		return nil, errCreate
	}
	return &created, nil
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, currentUserID(c)).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondErrorDetail(c, http.StatusInternalServerError, "server error", errFind, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userPayload(&user)})
}

// Logout clears the session cookie. Tokens are self-contained, so logout is
// advisory: a copied token stays valid until expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", h.production, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user logged out successfully"})
}

// updateProfileRequest defines the request body for profile updates.
type updateProfileRequest struct {
	FullName string `json:"fullName"`
}

// UpdateProfile changes the authenticated user's display name.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respondError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, currentUserID(c)).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondErrorDetail(c, http.StatusInternalServerError, "server error during profile update", errFind, h.production)
		return
	}

	if fullName := strings.TrimSpace(body.FullName); fullName != "" {
		if errUpdate := h.db.WithContext(ctx).Model(&user).Updates(map[string]any{
			"full_name":  fullName,
			"updated_at": h.now().UTC(),
		}).Error; errUpdate != nil {
			respondErrorDetail(c, http.StatusInternalServerError, "server error during profile update", errUpdate, h.production)
			return
		}
		user.FullName = fullName
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "profile updated successfully", "user": userPayload(&user)})
}

// saveLoginState persists the lockout counters and optional last-login stamp.
func (h *AuthHandler) saveLoginState(c *gin.Context, userID uint64, state auth.LoginState, lastLogin *time.Time) error {
	updates := map[string]any{
		"login_attempts": state.Attempts,
		"lock_until":     state.LockUntil,
		"updated_at":     h.now().UTC(),
	}
	if lastLogin != nil {
		updates["last_login"] = *lastLogin
	}
	return h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

// sendTokenResponse issues a session token, sets the cookie, and writes the
// user payload.
func (h *AuthHandler) sendTokenResponse(c *gin.Context, user *models.User, status int, message string) {
	token, errIssue := security.IssueToken(user.ID, []byte(h.jwtCfg.Secret), h.jwtCfg.Expiry, h.now())
	if errIssue != nil {
		respondErrorDetail(c, http.StatusInternalServerError, "failed to issue session token", errIssue, h.production)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("token", token, int(h.jwtCfg.Expiry.Seconds()), "/", "", h.production, true)
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"token":   token,
		"user":    userPayload(user),
	})
}
