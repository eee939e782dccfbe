package fulfillment

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/auditlog"
)

type FulfillmentHandler struct {
	Service  *FulfillmentService
	AuditLog *auditlog.Auditlog
}

func RegisterRoutes(router *gin.Engine, service *FulfillmentService, a *auditlog.Auditlog) {
	handler := FulfillmentHandler{
		Service:  service,
		AuditLog: a,
	}

	router.POST("/work-orders/:id/items/:item_id/picks", handler.RecordPick)
	router.GET("/work-orders/:id", handler.GetWorkOrder)
}

type recordPickRequest struct {
	Qty            float64 `json:"qty"`
	Closed         bool    `json:"closed"`
	Classification string  `json:"classification"`
	Reason         string  `json:"reason"`
}

func (h *FulfillmentHandler) RecordPick(c *gin.Context) {
	workOrderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid work order id"})
		return
	}
	lineItemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid line item id"})
		return
	}

	var req recordPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	result, err := h.Service.RecordPick(PickCommand{
		WorkOrderID:    workOrderID,
		LineItemID:     lineItemID,
		Qty:            req.Qty,
		Closed:         req.Closed,
		Classification: req.Classification,
		Reason:         req.Reason,
	})
	if err != nil {
		log.Println("Unable to record pick: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	if h.AuditLog != nil && result.Discrepancy != nil {
		go h.AuditLog.Log(
			"discrepancy",
			gin.H{
				"work_order_id":  workOrderID,
				"line_item_id":   lineItemID,
				"missing_qty":    result.Discrepancy.MissingQty,
				"classification": result.Discrepancy.Classification,
			},
			result.Discrepancy,
		)
	}

	c.JSON(http.StatusOK, result)
}

func (h *FulfillmentHandler) GetWorkOrder(c *gin.Context) {
	workOrderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid work order id"})
		return
	}

	order, err := h.Service.GetWorkOrder(workOrderID)
	if err != nil {
		log.Println("Unable to get work order: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}
