package scheduler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
)

type SchedulerHandler struct {
	Service *Service
}

func RegisterRoutes(router *gin.Engine, service *Service) {
	handler := SchedulerHandler{Service: service}

	router.POST("/requisitions/:id/suggestion", handler.Suggest)
	router.DELETE("/requisitions/:id/suggestion", handler.CancelSuggestion)
}

// Suggest returns the recommended worker for a requisition. A repeated call
// within the lock TTL serves the cached result; `fresh=true` discards the
// current session first.
func (h *SchedulerHandler) Suggest(c *gin.Context) {
	requisitionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requisition id"})
		return
	}

	holder, ok := sessionHolder(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authenticated user required"})
		return
	}

	suggest := h.Service.Suggest
	if c.Query("fresh") == "true" {
		suggest = h.Service.Renew
	}

	suggestion, err := suggest(requisitionID, holder)
	if err != nil {
		log.Println("Unable to compute suggestion: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

func (h *SchedulerHandler) CancelSuggestion(c *gin.Context) {
	requisitionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requisition id"})
		return
	}

	h.Service.Cancel(requisitionID)

	c.JSON(http.StatusOK, gin.H{"requisition_id": requisitionID})
}

// sessionHolder identifies the scheduling session owner: the authenticated
// user id set by the JWT middleware. The same identity is presented on the
// assignment that consumes the lock, so there is no anonymous fallback.
func sessionHolder(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}
