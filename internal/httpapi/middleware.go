package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"trackrequestd/internal/model"
)

// Auth0Config names the tenant this surface validates bearer tokens against.
type Auth0Config struct {
	Domain   string
	Audience string
}

// auth0Middleware validates Auth0 JWT tokens the same way the rest of this
// lineage's protected endpoints do, and stores the caller's numeric user id
// in the gin context for handlers to read.
func auth0Middleware(cfg Auth0Config) gin.HandlerFunc {
	issuerURL, _ := url.Parse(fmt.Sprintf("https://%s/", cfg.Domain))
	provider := jwks.NewCachingProvider(issuerURL, 24*time.Hour)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
	)
	if err != nil {
		panic(fmt.Sprintf("httpapi: failed to create JWT validator: %v", err))
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := jwtValidator.ValidateToken(context.Background(), tokenString)
		if err != nil {
			slog.Warn("httpapi: token validation failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.(*validator.ValidatedClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		userId, err := strconv.ParseInt(claims.RegisteredClaims.Subject, 10, 64)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token subject is not a numeric user id"})
			c.Abort()
			return
		}

		c.Set("user_id", model.UserId(userId))
		c.Next()
	}
}

// currentUser reads the user id auth0Middleware stored in the context.
func currentUser(c *gin.Context) (model.UserId, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	userId, ok := v.(model.UserId)
	return userId, ok
}
