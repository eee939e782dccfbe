package assignments

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/auditlog"
	custom_error "github.com/Doppler617492/MagacinTracker-sub000/pkg/errors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type AssignmentHandler struct {
	Service  *AssignmentService
	AuditLog *auditlog.Auditlog
}

func RegisterRoutes(router *gin.Engine, service *AssignmentService, a *auditlog.Auditlog) {
	handler := AssignmentHandler{
		Service:  service,
		AuditLog: a,
	}

	router.POST("/requisitions/:id/assignments", handler.CreateAssignments)
}

type createAssignmentsRequest struct {
	Override    bool              `json:"override"`
	Assignments []AssignmentEntry `json:"assignments"`

	// Team mode: split the listed items 50/50 between the team members.
	TeamID   *int             `json:"team_id"`
	Priority models.Priority  `json:"priority"`
	DueAt    *time.Time       `json:"due_at"`
	Items    []ItemAllocation `json:"items"`
}

func (h *AssignmentHandler) CreateAssignments(c *gin.Context) {
	requisitionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requisition id"})
		return
	}

	var req createAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	holder, ok := callerIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authenticated user required"})
		return
	}

	var workOrderIDs []int
	if req.TeamID != nil {
		workOrderIDs, err = h.Service.AssignTeam(requisitionID, *req.TeamID, req.Priority, req.DueAt, req.Items, holder, req.Override)
	} else {
		workOrderIDs, err = h.Service.Assign(AssignCommand{
			RequisitionID: requisitionID,
			Holder:        holder,
			Override:      req.Override,
			Entries:       req.Assignments,
		})
	}

	if err != nil {
		log.Println("Unable to create assignment: ", err)
		if custom_error.IsUniqueViolation(err) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	action := "assigned"
	if req.Override {
		action = "overridden"
	}
	if h.AuditLog != nil {
		for _, workOrderID := range workOrderIDs {
			order := models.WorkOrder{ID: workOrderID, RequisitionID: requisitionID}
			go h.AuditLog.Log(
				action,
				gin.H{
					"requisition_id": requisitionID,
					"work_order_id":  workOrderID,
					"holder":         holder,
				},
				&order,
			)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"work_order_ids": workOrderIDs})
}

// callerIdentity reads the authenticated user id set by the JWT middleware.
// It must match the holder the suggestion endpoint locked under, so there is
// no anonymous fallback.
func callerIdentity(c *gin.Context) (string, bool) {
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
