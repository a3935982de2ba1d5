package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/neuroassist/internal/shared/domain"
	sharedUtils "github.com/davicafu/neuroassist/internal/shared/infra/utils"
	"github.com/davicafu/neuroassist/internal/task/application"
	taskDomain "github.com/davicafu/neuroassist/internal/task/domain"
	"github.com/davicafu/neuroassist/pkg/utils"
)

// TaskHandler encapsula los endpoints HTTP relacionados con Task.
type TaskHandler struct {
	repo *application.TaskRepository
	now  func() time.Time
	log  *zap.Logger
}

// NewTaskHandler crea un nuevo TaskHandler.
func NewTaskHandler(repo *application.TaskRepository, log *zap.Logger) *TaskHandler {
	return &TaskHandler{repo: repo, now: time.Now, log: log}
}

// taskResponse añade a la tarea los campos derivados que muestra la UI.
type taskResponse struct {
	*taskDomain.Task
	DisplayStatus taskDomain.DisplayStatus `json:"display_status"`
	IsOverdue     bool                     `json:"is_overdue"`
	IsProminent   bool                     `json:"is_prominent"`
	Categories    []taskDomain.Category    `json:"categories"`
}

type listResponse struct {
	Tasks   []taskResponse `json:"tasks"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
	Skipped int            `json:"skipped,omitempty"`
}

func (h *TaskHandler) toResponse(t *taskDomain.Task, now time.Time) taskResponse {
	return taskResponse{
		Task:          t,
		DisplayStatus: t.DisplayStatus(now),
		IsOverdue:     t.IsOverdue(now),
		IsProminent:   t.IsProminent(now),
		Categories:    t.DetectedCategories().Sorted(),
	}
}

func (h *TaskHandler) toList(tasks []*taskDomain.Task, snap application.Snapshot) listResponse {
	now := h.now()
	out := listResponse{Tasks: make([]taskResponse, 0, len(tasks)), Loading: snap.Loading, Error: snap.Err, Skipped: snap.Skipped}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, h.toResponse(t, now))
	}
	return out
}

// sendRepoError traduce los errores del repositorio a códigos HTTP.
func (h *TaskHandler) sendRepoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, taskDomain.ErrInvalidTask):
		utils.SendBadRequest(c, err.Error())
	case errors.Is(err, taskDomain.ErrTaskNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		utils.SendGatewayTimeout(c, err.Error())
	case errors.Is(err, application.ErrRepositoryClosed):
		utils.SendServiceUnavailable(c, err.Error())
	default:
		h.log.Error("Task operation failed", zap.Error(err))
		utils.SendInternalServerError(c, err.Error())
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

// --- Handlers CRUD ---

type createTaskRequest struct {
	Title           string     `json:"title" binding:"required"`
	DueDate         *time.Time `json:"due_date"`
	Priority        string     `json:"priority"`
	Tags            []string   `json:"tags"`
	Notes           string     `json:"notes"`
	SuggestPriority bool       `json:"suggest_priority"`
}

// CreateTask endpoint POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	opts := []taskDomain.TaskOption{taskDomain.WithTags(req.Tags...), taskDomain.WithNotes(req.Notes)}
	if req.DueDate != nil {
		opts = append(opts, taskDomain.WithDueDate(*req.DueDate))
	}
	if req.Priority != "" {
		p, err := taskDomain.ParsePriority(req.Priority)
		if err != nil {
			utils.SendBadRequest(c, err.Error())
			return
		}
		opts = append(opts, taskDomain.WithPriority(p))
	}

	task, err := taskDomain.NewTask(req.Title, opts...)
	if err != nil {
		h.sendRepoError(c, err)
		return
	}
	// Sólo se sugiere prioridad si el cliente no la fijó.
	if req.SuggestPriority && req.Priority == "" {
		task.ApplySuggestedPriority()
	}

	if _, err := h.repo.AddTask(c.Request.Context(), task); err != nil {
		h.sendRepoError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusCreated, h.toResponse(task, h.now()))
}

// GetTask endpoint GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.repo.GetTaskByID(id)
	if err != nil {
		h.sendRepoError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, h.toResponse(task, h.now()))
}

// Usamos punteros para que los campos sean opcionales en el JSON
type updateTaskRequest struct {
	Title        *string    `json:"title"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	Priority     *string    `json:"priority"`
	Tags         *[]string  `json:"tags"`
	Notes        *string    `json:"notes"`
}

// UpdateTask endpoint PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	task, err := h.repo.GetTaskByID(id)
	if err != nil {
		h.sendRepoError(c, err)
		return
	}

	// Aplicamos los cambios si se proporcionaron
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.ClearDueDate {
		task.DueDate = nil
	} else if req.DueDate != nil {
		due := req.DueDate.UTC()
		task.DueDate = &due
	}
	if req.Priority != nil {
		p, err := taskDomain.ParsePriority(*req.Priority)
		if err != nil {
			utils.SendBadRequest(c, err.Error())
			return
		}
		task.Priority = p
	}
	if req.Tags != nil {
		task.Tags = []string{}
		for _, tag := range *req.Tags {
			task.AddTag(tag)
		}
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}

	if _, err := h.repo.UpdateTask(c.Request.Context(), task); err != nil {
		h.sendRepoError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, h.toResponse(task, h.now()))
}

// ToggleTask endpoint POST /tasks/:id/toggle
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.repo.GetTaskByID(id)
	if err != nil {
		h.sendRepoError(c, err)
		return
	}

	if _, err := h.repo.ToggleTaskCompletion(c.Request.Context(), task); err != nil {
		h.sendRepoError(c, err)
		return
	}

	toggled, err := h.repo.GetTaskByID(id)
	if err != nil {
		h.sendRepoError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, h.toResponse(toggled, h.now()))
}

// DeleteTask endpoint DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.repo.DeleteTask(c.Request.Context(), id); err != nil {
		h.sendRepoError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTasks endpoint GET /tasks con filtros sobre la vista ordenada.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var criterias []sharedDomain.Criteria

	// --- Filtros desde query params ---
	if completed := c.Query("completed"); completed != "" {
		b, err := strconv.ParseBool(completed)
		if err != nil {
			utils.SendBadRequest(c, "invalid completed filter")
			return
		}
		criterias = append(criterias, taskDomain.CompletedCriteria{Completed: b})
	}
	if priority := c.Query("priority"); priority != "" {
		p, err := taskDomain.ParsePriority(priority)
		if err != nil {
			utils.SendBadRequest(c, err.Error())
			return
		}
		criterias = append(criterias, taskDomain.PriorityCriteria{Priority: p})
	}
	if q := c.Query("q"); q != "" {
		criterias = append(criterias, taskDomain.TitleLikeCriteria{Title: q})
	}
	if category := c.Query("category"); category != "" {
		cat, ok := taskDomain.ParseCategory(category)
		if !ok {
			utils.SendBadRequest(c, "unknown category")
			return
		}
		criterias = append(criterias, taskDomain.CategoryCriteria{Category: cat})
	}

	if tag := c.Query("tag"); tag != "" {
		criterias = append(criterias, taskDomain.TagCriteria{Tag: tag})
	}

	// Rangos de fechas en RFC3339; cada extremo es opcional.
	dueFrom, ok1 := parseTimeQuery(c, "due_from")
	dueTo, ok2 := parseTimeQuery(c, "due_to")
	createdFrom, ok3 := parseTimeQuery(c, "created_from")
	createdTo, ok4 := parseTimeQuery(c, "created_to")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}
	if dueFrom != nil || dueTo != nil {
		criterias = append(criterias, taskDomain.DueDateRangeCriteria{Start: dueFrom, End: dueTo})
	}
	if createdFrom != nil || createdTo != nil {
		criterias = append(criterias, taskDomain.CreatedAtRangeCriteria{Start: createdFrom, End: createdTo})
	}

	tasks := h.repo.Query(sharedDomain.And(criterias...))

	// --- Bucket de fechas: intersección con la lista del repositorio ---
	if bucket := c.Query("bucket"); bucket != "" {
		var inBucket []*taskDomain.Task
		switch bucket {
		case "overdue":
			inBucket = h.repo.GetOverdueTasks()
		case "today":
			inBucket = h.repo.GetTasksDueToday()
		case "week":
			inBucket = h.repo.GetTasksDueThisWeek()
		case "prominent":
			inBucket = h.repo.GetProminentTasks()
		default:
			utils.SendBadRequest(c, "unknown bucket")
			return
		}
		tasks = intersect(tasks, inBucket)
	}

	utils.SendSuccess(c, http.StatusOK, h.toList(tasks, h.repo.State()))
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		utils.SendBadRequest(c, "invalid "+key+": expected RFC3339")
		return nil, false
	}
	return &t, true
}

// intersect conserva el orden de tasks.
func intersect(tasks, keep []*taskDomain.Task) []*taskDomain.Task {
	ids := make(map[uuid.UUID]struct{}, len(keep))
	for _, t := range keep {
		ids[t.ID] = struct{}{}
	}
	out := make([]*taskDomain.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := ids[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

// GetSummary endpoint GET /tasks/summary
func (h *TaskHandler) GetSummary(c *gin.Context) {
	utils.SendSuccess(c, http.StatusOK, h.repo.CachedSummary(c.Request.Context()))
}

// Refresh endpoint POST /tasks/refresh
func (h *TaskHandler) Refresh(c *gin.Context) {
	snap, err := h.repo.Refresh(c.Request.Context())
	if err != nil {
		h.sendRepoError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, h.toList(snap.Tasks, snap))
}

// Health endpoint GET /health
func (h *TaskHandler) Health(c *gin.Context) {
	snap := h.repo.State()
	utils.SendSuccess(c, http.StatusOK, gin.H{
		"status": sharedUtils.Ternary(snap.Loading, "loading", "ready"),
		"tasks":  len(snap.Tasks),
		"error":  snap.Err,
	})
}
