package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sistema-uemg/horas-api/internal/middleware"
	"github.com/sistema-uemg/horas-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requesterFromContext projects the JWT claims onto the user fields the
// services check for ownership and role.
func requesterFromContext(c *gin.Context) *models.User {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		Role:     claims.Role,
	}
}
