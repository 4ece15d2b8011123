package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/store"
	"github.com/healthcareclinic/clinic-api/internal/token"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// RequireAccount validates the bearer token and re-fetches the account so
// a blocked user is rejected even while holding a live token.
func RequireAccount(tokens *token.Manager, users *store.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required."})
			return
		}

		claims, err := tokens.Validate(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token."})
			return
		}
		if claims.Role != models.RolePatient && claims.Role != models.RoleDoctor {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Permission denied."})
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.AccountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token."})
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Account no longer exists."})
			return
		}
		if user.Blocked {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Account is blocked."})
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Set("userRole", user.Role)
		c.Next()
	}
}

// RequireAdmin gates the back-office routes on an admin token backed by a
// live admin record.
func RequireAdmin(tokens *token.Manager, admins *store.Admins) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required."})
			return
		}

		claims, err := tokens.Validate(tokenStr)
		if err != nil || claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token."})
			return
		}

		adminID, err := primitive.ObjectIDFromHex(claims.AccountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token."})
			return
		}

		admin, err := admins.FindByID(c.Request.Context(), adminID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Account no longer exists."})
			return
		}

		c.Set("admin", admin)
		c.Set("adminID", admin.ID)
		c.Next()
	}
}

// CurrentUser returns the account loaded by RequireAccount.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// CurrentAdmin returns the account loaded by RequireAdmin.
func CurrentAdmin(c *gin.Context) *models.Admin {
	if v, ok := c.Get("admin"); ok {
		if admin, ok := v.(*models.Admin); ok {
			return admin
		}
	}
	return nil
}
