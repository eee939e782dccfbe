package reporting

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
)

type ReportingHandler struct {
	Repo ReportingRepository
}

func RegisterRoutes(router *gin.Engine, repo ReportingRepository) {
	handler := ReportingHandler{Repo: repo}

	router.GET("/reports/fulfillment", handler.GetFulfillmentReport)
	router.GET("/reports/fulfillment.csv", handler.GetFulfillmentReportCSV)
}

func (h *ReportingHandler) GetFulfillmentReport(c *gin.Context) {
	rows, err := h.Repo.GetWorkerFulfillment(ReportFilter{Warehouse: c.Query("warehouse")})
	if err != nil {
		log.Println("Unable to build fulfillment report: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	type reportRow struct {
		WorkerFulfillmentRow
		FillRate float64 `json:"fill_rate"`
	}

	out := make([]reportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, reportRow{WorkerFulfillmentRow: row, FillRate: row.FillRate()})
	}

	c.JSON(http.StatusOK, gin.H{"rows": out})
}

func (h *ReportingHandler) GetFulfillmentReportCSV(c *gin.Context) {
	rows, err := h.Repo.GetWorkerFulfillment(ReportFilter{Warehouse: c.Query("warehouse")})
	if err != nil {
		log.Println("Unable to build fulfillment report: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="fulfillment.csv"`)

	writer := csv.NewWriter(c.Writer)
	header := []string{
		"worker_id", "worker_name", "warehouse",
		"work_orders_total", "work_orders_done",
		"allocated_qty", "picked_qty",
		"discrepancy_count", "missing_qty", "fill_rate",
	}
	if err := writer.Write(header); err != nil {
		log.Println("Unable to write CSV: ", err)
		return
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.WorkerID),
			row.WorkerName,
			row.Warehouse,
			strconv.Itoa(row.WorkOrdersTotal),
			strconv.Itoa(row.WorkOrdersDone),
			formatQty(row.AllocatedQty),
			formatQty(row.PickedQty),
			strconv.Itoa(row.DiscrepancyCount),
			formatQty(row.MissingQty),
			fmt.Sprintf("%.4f", row.FillRate()),
		}
		if err := writer.Write(record); err != nil {
			log.Println("Unable to write CSV: ", err)
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Println("Unable to flush CSV: ", err)
	}
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
