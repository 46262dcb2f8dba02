package middleware

import "github.com/gin-gonic/gin"

// userIDKey stores the authenticated admin's name.
const userIDKey = contextKey("userID")

// GetUserIDFromContext retrieves the authenticated admin's name set by AuthMiddleware.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get(string(userIDKey))
	if !exists {
		// check in the request context as well
		userIdVal := c.Request.Context().Value(userIDKey)
		if userIdVal != nil {
			return userIdVal.(string), true
		}
		return "", false
	}

	userID, ok := userIDVal.(string)
	if !ok {
		return "", false
	}

	return userID, true
}
