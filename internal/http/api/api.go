// Package api wires the HTTP surface: route registration and the
// authentication, authorization, CORS, and rate-limit middleware.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fundbridge/fundbridge/internal/config"
	"github.com/fundbridge/fundbridge/internal/http/api/handlers"
	"github.com/fundbridge/fundbridge/internal/models"
	"github.com/fundbridge/fundbridge/internal/ratelimit"
	"github.com/fundbridge/fundbridge/internal/security"
)

// Deps carries everything route registration needs.
type Deps struct {
	DB            *gorm.DB
	Config        *config.Config
	Auth          *handlers.AuthHandler
	Payments      *handlers.PaymentHandler
	Contributions *handlers.ContributionHandler
	Health        *handlers.HealthHandler
	Limiter       ratelimit.Limiter
}

// RegisterRoutes attaches the API surface to the engine.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(corsMiddleware(deps.Config.AllowedOrigins))

	r.GET("/healthz", deps.Health.Check)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.Use(rateLimitMiddleware(deps.Limiter, deps.Config.AuthRateLimit))
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.POST("/google", deps.Auth.Google)
	authGroup.POST("/logout", authMiddleware(deps.DB, deps.Config.JWT, true), deps.Auth.Logout)
	authGroup.GET("/me", authMiddleware(deps.DB, deps.Config.JWT, true), deps.Auth.Me)
	authGroup.PUT("/profile", authMiddleware(deps.DB, deps.Config.JWT, true), deps.Auth.UpdateProfile)

	payGroup := apiGroup.Group("/payments")
	payGroup.POST("/create-order", authMiddleware(deps.DB, deps.Config.JWT, false), deps.Payments.CreateOrder)
	// Verification shares the auth surface's request budget.
	payGroup.POST("/verify", rateLimitMiddleware(deps.Limiter, deps.Config.AuthRateLimit), deps.Payments.Verify)

	contribGroup := apiGroup.Group("/contributions")
	contribGroup.GET("/stats", deps.Contributions.Stats)
	contribGroup.POST("", authMiddleware(deps.DB, deps.Config.JWT, true), deps.Contributions.Claim)
	contribGroup.GET("", authMiddleware(deps.DB, deps.Config.JWT, true), deps.Contributions.List)
	contribGroup.GET("/:id", authMiddleware(deps.DB, deps.Config.JWT, true), deps.Contributions.Get)
	contribGroup.DELETE("/:id",
		authMiddleware(deps.DB, deps.Config.JWT, true),
		requireRoles(models.RoleAdmin),
		deps.Contributions.Delete)
}

// extractToken pulls the session token from the Authorization header, falling
// back to the cookie. The header wins when both are present.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token
		}
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// authMiddleware validates the session token and loads the user into the
// request context. With required=false an absent or invalid token passes the
// request through as a guest instead of rejecting it.
func authMiddleware(conn *gorm.DB, jwtCfg config.JWTConfig, required bool) gin.HandlerFunc {
	secret := []byte(jwtCfg.Secret)
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "not authorized to access this route"})
				return
			}
			c.Next()
			return
		}

		userID, errParse := security.ParseToken(tokenString, secret)
		if errParse != nil {
			if required {
				message := "not authorized to access this route"
				if errors.Is(errParse, security.ErrTokenExpired) {
					message = "session expired, please log in again"
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
				return
			}
			c.Next()
			return
		}

		var user models.User
		errFind := conn.WithContext(c.Request.Context()).
			Where("id = ? AND active = ?", userID, true).
			First(&user).Error
		if errFind != nil {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "not authorized to access this route"})
				return
			}
			c.Next()
			return
		}

		c.Set(handlers.CtxUserID, user.ID)
		c.Set(handlers.CtxUserRole, user.Role)
		c.Set(handlers.CtxEmail, user.Email)
		c.Set(handlers.CtxFullName, user.FullName)
		c.Next()
	}
}

// requireRoles rejects authenticated requests whose role is not in the list.
// It must run after authMiddleware.
func requireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(c *gin.Context) {
		role, ok := c.Get(handlers.CtxUserRole)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "not authorized to access this route"})
			return
		}
		if cast, okCast := role.(models.Role); !okCast || !allowed[cast] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "access denied"})
			return
		}
		c.Next()
	}
}

// corsMiddleware answers preflight requests and stamps the CORS headers for
// configured origins. An empty origin list disables cross-origin access.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed[trimmed] = true
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// rateLimitMiddleware enforces a per-client-IP request budget on the wrapped
// routes. Limiter failures fail open so a Redis outage does not take auth
// down with it.
func rateLimitMiddleware(limiter ratelimit.Limiter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		res, errAllow := limiter.Allow(c.Request.Context(), c.ClientIP(), limit, time.Now())
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
