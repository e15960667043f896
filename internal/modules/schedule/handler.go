package schedule

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"spacebooking/internal/domain"
	"spacebooking/internal/pkg/response"
	"spacebooking/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service    *Service
	dispatcher *Dispatcher
}

func NewHandler(service *Service, dispatcher *Dispatcher) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/schedules")
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/approvals", h.ListPendingApprovals)
		g.POST("/conflicts", h.CheckConflicts)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		g.POST("/:id/approve", h.Approve)
		g.POST("/:id/reject", h.Reject)
		g.POST("/:id/cancel", h.Cancel)
	}
	protected.GET("/spaces/:id/occurrences", h.SpaceOccurrences)
}

// RegisterManagerRoutes mounts routes that read across requesters. The group
// must already restrict callers to managers.
func (h *Handler) RegisterManagerRoutes(managers *gin.RouterGroup) {
	managers.GET("/users/:id/schedules", h.ListByRequester)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	s, events, err := h.service.CreateSchedule(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), events)

	response.Success(c, http.StatusCreated, gin.H{"schedule": s})
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	s, events, err := h.service.UpdateSchedule(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), events)

	response.Success(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSchedule(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) Approve(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	s, events, err := h.service.ApproveSchedule(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), events)

	response.Success(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) Reject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req RejectScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	s, events, err := h.service.RejectSchedule(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), events)

	response.Success(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	s, events, err := h.service.CancelSchedule(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), events)

	response.Success(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	s, err := h.service.GetSchedule(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedule": s})
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	f, ok := listFilter(c)
	if !ok {
		return
	}

	list, err := h.service.ListSchedules(c.Request.Context(), actor, f)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": list})
}

func (h *Handler) ListByRequester(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requesterID, ok := idParam(c)
	if !ok {
		return
	}
	f, ok := listFilter(c)
	if !ok {
		return
	}
	f.RequestedByID = requesterID

	list, err := h.service.ListSchedules(c.Request.Context(), actor, f)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": list})
}

// listFilter reads ?space_id=&status=&limit=&offset=.
func listFilter(c *gin.Context) (ListFilter, bool) {
	f := ListFilter{}
	if s := c.Query("space_id"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid space ID")
			return f, false
		}
		f.SpaceID = v
	}
	if s := c.Query("status"); s != "" {
		st := domain.ScheduleStatus(s)
		if !st.Valid() {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status filter")
			return f, false
		}
		f.Status = st
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))
	return f, true
}

func (h *Handler) ListPendingApprovals(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	list, err := h.service.ListPendingApprovals(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": list})
}

func (h *Handler) CheckConflicts(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	report, err := h.service.CheckConflicts(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// SpaceOccurrences expects from/to as YYYY-MM-DD; to is exclusive.
func (h *Handler) SpaceOccurrences(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	spaceID, ok := idParam(c)
	if !ok {
		return
	}

	loc := h.service.Location()
	from, err := time.ParseInLocation(dateLayout, c.Query("from"), loc)
	if err != nil {
		writeError(c, ErrInvalidDateFormat)
		return
	}
	to, err := time.ParseInLocation(dateLayout, c.Query("to"), loc)
	if err != nil {
		writeError(c, ErrInvalidDateFormat)
		return
	}

	list, err := h.service.SpaceOccurrences(c.Request.Context(), actor, spaceID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"occurrences": list})
}

func actorFrom(c *gin.Context) (Actor, bool) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return Actor{}, false
	}
	return Actor{
		UserID:   userID,
		TenantID: c.GetInt64("tenant_id"),
		Role:     c.GetString("role"),
	}, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var conflictErr *ConflictError
	var hoursErr *OperatingHoursError

	switch {
	case errors.As(err, &conflictErr):
		response.ErrorWithDetails(c, http.StatusConflict, "SCHEDULE_CONFLICT", "Space is already booked for the requested time",
			gin.H{"conflicts": conflictErr.Conflicts})
	case errors.As(err, &hoursErr):
		response.Error(c, http.StatusBadRequest, "OUT_OF_OPERATING_HOURS", hoursErr.Reason)
	case errors.Is(err, ErrInvalidDateFormat):
		response.Error(c, http.StatusBadRequest, "INVALID_DATE_FORMAT", err.Error())
	case errors.Is(err, ErrInvalidTimeFormat):
		response.Error(c, http.StatusBadRequest, "INVALID_TIME_FORMAT", err.Error())
	case errors.Is(err, ErrInvalidRange):
		response.Error(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
	case errors.Is(err, ErrMalformedRecurrenceRule):
		response.Error(c, http.StatusBadRequest, "MALFORMED_RECURRENCE_RULE", err.Error())
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid schedule data")
	case errors.Is(err, ErrSpaceNotFound):
		response.Error(c, http.StatusNotFound, "SPACE_NOT_FOUND", "Space not found")
	case errors.Is(err, ErrScheduleNotFound):
		response.Error(c, http.StatusNotFound, "SCHEDULE_NOT_FOUND", "Schedule not found")
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusBadRequest, "INVALID_STATUS_TRANSITION", "Schedule status does not allow this action")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process schedule")
	}
}
