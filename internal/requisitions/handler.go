package requisitions

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/auditlog"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type RequisitionHandler struct {
	Service  *RequisitionService
	AuditLog *auditlog.Auditlog
}

func RegisterRoutes(router *gin.Engine, service *RequisitionService, a *auditlog.Auditlog) {
	handler := RequisitionHandler{
		Service:  service,
		AuditLog: a,
	}

	router.GET("/requisitions", handler.ListRequisitions)
	router.GET("/requisitions/:id", handler.GetRequisition)
	router.POST("/requisitions/:id/fail", handler.FailRequisition)
}

func (h *RequisitionHandler) GetRequisition(c *gin.Context) {
	requisitionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requisition id"})
		return
	}

	snapshot, err := h.Service.GetSnapshot(requisitionID)
	if err != nil {
		log.Println("Unable to get requisition snapshot: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *RequisitionHandler) ListRequisitions(c *gin.Context) {
	requisitions, err := h.Service.List(c.Query("status"))
	if err != nil {
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, requisitions)
}

func (h *RequisitionHandler) FailRequisition(c *gin.Context) {
	requisitionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requisition id"})
		return
	}

	if err := h.Service.Fail(requisitionID); err != nil {
		log.Println("Unable to fail requisition: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	if h.AuditLog != nil {
		requisition := models.Requisition{ID: requisitionID}
		go h.AuditLog.Log("failed", gin.H{"requisition_id": requisitionID}, &requisition)
	}

	c.JSON(http.StatusOK, gin.H{"requisition_id": requisitionID, "status": "failed"})
}
