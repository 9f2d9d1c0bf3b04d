package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/bounty-flow-api/internal/constants"
	apierrors "github.com/yukikurage/bounty-flow-api/internal/errors"
)

// RequireTaskID parses the :id URL parameter into the context. Only
// malformed IDs are rejected; 0 and other unknown IDs reach the handler.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTaskID, taskID)
		c.Next()
	}
}

// GetTaskID retrieves the task ID set by RequireTaskID
func GetTaskID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(constants.ContextKeyTaskID)
	if !exists {
		return 0, false
	}
	taskID, ok := v.(uint64)
	return taskID, ok
}
