package workers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/auditlog"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

type WorkerHandler struct {
	Service  *WorkerService
	AuditLog *auditlog.Auditlog
}

func RegisterRoutes(router *gin.Engine, service *WorkerService, a *auditlog.Auditlog) {
	handler := WorkerHandler{
		Service:  service,
		AuditLog: a,
	}

	router.GET("/workers", handler.ListWorkers)
	router.GET("/workers/:id", handler.GetWorker)
	router.POST("/workers", handler.CreateWorker)
	router.PATCH("/workers/:id", handler.UpdateWorker)

	router.GET("/teams", handler.ListTeams)
	router.POST("/teams", handler.CreateTeam)
	router.DELETE("/teams/:id", handler.DisbandTeam)
}

func (h *WorkerHandler) ListWorkers(c *gin.Context) {
	workers, err := h.Service.ListWorkers()
	if err != nil {
		log.Println("Unable to list workers: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, workers)
}

func (h *WorkerHandler) GetWorker(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker id"})
		return
	}

	worker, err := h.Service.GetWorker(id)
	if err != nil {
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, worker)
}

func (h *WorkerHandler) CreateWorker(c *gin.Context) {
	var req CreateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	worker, err := h.Service.CreateWorker(req)
	if err != nil {
		log.Println("Unable to create worker: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, worker)
}

func (h *WorkerHandler) UpdateWorker(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker id"})
		return
	}

	var changes WorkerChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	worker, err := h.Service.UpdateWorker(id, &changes)
	if err != nil {
		log.Println("Unable to update worker: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, worker)
}

func (h *WorkerHandler) ListTeams(c *gin.Context) {
	teams, err := h.Service.ListTeams()
	if err != nil {
		log.Println("Unable to list teams: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, teams)
}

func (h *WorkerHandler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	teamID, err := h.Service.CreateTeam(req)
	if err != nil {
		log.Println("Unable to create team: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	if h.AuditLog != nil {
		team := models.Team{ID: teamID, WorkerAID: req.WorkerAID, WorkerBID: req.WorkerBID, Shift: req.Shift, Active: true}
		go h.AuditLog.Log(
			"team_created",
			gin.H{"team_id": teamID, "worker_a_id": req.WorkerAID, "worker_b_id": req.WorkerBID},
			&team,
		)
	}

	c.JSON(http.StatusCreated, gin.H{"id": teamID})
}

func (h *WorkerHandler) DisbandTeam(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team id"})
		return
	}

	if err := h.Service.DisbandTeam(id); err != nil {
		log.Println("Unable to disband team: ", err)
		c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Team disbanded"})
}
