package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/linkvault-api/internal/middleware"
	"github.com/noah-isme/linkvault-api/internal/models"
)

const accessPasswordHeader = "X-Access-Password"

func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// accessPassword prefers the header so passwords stay out of access logs.
func accessPassword(c *gin.Context) string {
	if password := c.GetHeader(accessPasswordHeader); password != "" {
		return password
	}
	return strings.TrimSpace(c.Query("password"))
}
