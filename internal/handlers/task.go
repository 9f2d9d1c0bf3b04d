package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/bounty-flow-api/internal/dto"
	apierrors "github.com/yukikurage/bounty-flow-api/internal/errors"
	"github.com/yukikurage/bounty-flow-api/internal/middleware"
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"github.com/yukikurage/bounty-flow-api/internal/services"
	"github.com/yukikurage/bounty-flow-api/internal/utils"
)

type TaskHandler struct {
	bountyService *services.BountyService
}

func NewTaskHandler(bountyService *services.BountyService) *TaskHandler {
	return &TaskHandler{
		bountyService: bountyService,
	}
}

// CreateTask posts a new bounty.
// creator_id defaults to the session principal; a different value is
// rejected by the auth guard.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		CreatorID *uint64 `json:"creator_id"`
		Title     string  `json:"title"`
		Amount    int64   `json:"amount"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	creator := userID
	if req.CreatorID != nil {
		creator = *req.CreatorID
	}

	taskID, err := h.bountyService.CreateTask(c.Request.Context(), creator, req.Title, req.Amount)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": taskID})
}

// SubmitWork records the caller's submission for a pending task
func (h *TaskHandler) SubmitWork(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	type SubmitWorkRequest struct {
		FreelancerID *uint64 `json:"freelancer_id"`
	}

	var req SubmitWorkRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	freelancer := userID
	if req.FreelancerID != nil {
		freelancer = *req.FreelancerID
	}

	success, err := h.bountyService.SubmitWork(c.Request.Context(), taskID, freelancer)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": success})
}

// ReleaseFunds marks a completed task as paid
func (h *TaskHandler) ReleaseFunds(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	type ReleaseFundsRequest struct {
		CreatorID *uint64 `json:"creator_id"`
	}

	var req ReleaseFundsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	creator := userID
	if req.CreatorID != nil {
		creator = *req.CreatorID
	}

	success, err := h.bountyService.ReleaseFunds(c.Request.Context(), taskID, creator)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": success})
}

// GetTask returns the (title, status) projection. Unknown IDs answer 200
// with a null task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	summary, err := h.bountyService.GetTask(taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskSummaryResponse(summary))
}

// GetTaskDetail returns the full task record
func (h *TaskHandler) GetTaskDetail(c *gin.Context) {
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.bountyService.GetTaskDetail(taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ListTasks returns tasks filtered by creator_id, freelancer_id and status
func (h *TaskHandler) ListTasks(c *gin.Context) {
	input := services.ListTasksInput{
		Pagination: utils.GetPaginationParams(c),
	}

	if v := c.Query("creator_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid creator_id")
			return
		}
		input.CreatorID = &id
	}
	if v := c.Query("freelancer_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid freelancer_id")
			return
		}
		input.FreelancerID = &id
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}

	tasks, total, err := h.bountyService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, input.Pagination.Page, input.Pagination.Limit, total))
}

// DraftTasks suggests bounties from free text using AI
func (h *TaskHandler) DraftTasks(c *gin.Context) {
	type DraftTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req DraftTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.bountyService.DraftTasks(c.Request.Context(), req.Text)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// bindOptionalJSON binds a JSON body when one is present. An empty body,
// chunked or not, leaves obj untouched.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidAmount, err.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeTaskNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyCompleted):
		apierrors.Conflict(c, apierrors.ErrCodeAlreadyCompleted, err.Error())
	case errors.Is(err, services.ErrNotCompleted):
		apierrors.Conflict(c, apierrors.ErrCodeNotCompleted, err.Error())
	case errors.Is(err, services.ErrAlreadyPaid):
		apierrors.Conflict(c, apierrors.ErrCodeAlreadyPaid, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		apierrors.Forbidden(c, services.ErrUnauthorized.Error())
	case errors.Is(err, services.ErrDraftTextRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	case errors.Is(err, services.ErrAINoDraftsGenerated),
		errors.Is(err, services.ErrAINoValidDrafts):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity, apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, err.Error()))
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
