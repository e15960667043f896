package schedule

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spacebooking/internal/domain"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func setupTestRouter(t *testing.T, space *domain.Space) (*gin.Engine, *MockNotificationSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := newTestService(space)

	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, mock.Anything).Return(&domain.User{ID: approverID, Email: "approver@example.com"}, nil)
	sender := new(MockNotificationSender)
	sender.On("SendApprovalRequest", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendApproved", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	h := NewHandler(svc, NewDispatcher(users, sender))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-Test-User-ID"); userID != "" {
			id, _ := strconv.ParseInt(userID, 10, 64)
			c.Set("user_id", id)
			c.Set("tenant_id", tenantID)
			c.Set("role", string(domain.RoleMember))
		}
		c.Next()
	})

	h.RegisterRoutes(r.Group("/api/v1"))
	return r, sender
}

func doJSONRequest(r http.Handler, method, path string, body any, userID int64) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User-ID", strconv.FormatInt(userID, 10))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func createBody(start, end string) map[string]any {
	return map[string]any{
		"space_id":   spaceID,
		"title":      "Design review",
		"date":       "2024-03-15",
		"start_time": start,
		"end_time":   end,
	}
}

func scheduleIDFrom(t *testing.T, env envelope) int64 {
	t.Helper()
	var data struct {
		Schedule domain.Schedule `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Schedule.ID
}

func TestScheduleEndpoints_Unauthorized(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:00", "11:00"), 0)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestCreateSchedule_Created(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:00", "11:00"), requester)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, env.Success)
	assert.NotZero(t, scheduleIDFrom(t, env))
}

func TestCreateSchedule_ErrorMapping(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"bad date", map[string]any{"space_id": spaceID, "title": "x", "date": "2024-3-15", "start_time": "10:00", "end_time": "11:00"}, http.StatusBadRequest, "INVALID_DATE_FORMAT"},
		{"bad time", createBody("25:00", "11:00"), http.StatusBadRequest, "INVALID_TIME_FORMAT"},
		{"bad range", createBody("11:00", "10:00"), http.StatusBadRequest, "INVALID_RANGE"},
		{"out of hours", createBody("07:00", "09:00"), http.StatusBadRequest, "OUT_OF_OPERATING_HOURS"},
		{"missing fields", map[string]any{"title": "x"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown space", map[string]any{"space_id": 404, "title": "x", "date": "2024-03-15", "start_time": "10:00", "end_time": "11:00"}, http.StatusNotFound, "SPACE_NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", tc.body, requester)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}

	body := createBody("10:00", "11:00")
	body["rrule"] = "FREQ=SOMETIMES"
	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", body, requester)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "MALFORMED_RECURRENCE_RULE", env.Error.Code)
}

func TestCreateSchedule_ConflictReturnsDetails(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:00", "11:00"), requester)
	require.Equal(t, http.StatusCreated, rr.Code)
	existingID := scheduleIDFrom(t, env)

	rr, env = doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:30", "11:30"), outsiderID)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SCHEDULE_CONFLICT", env.Error.Code)

	var details struct {
		Conflicts []Conflict `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	require.Len(t, details.Conflicts, 1)
	assert.Equal(t, existingID, details.Conflicts[0].ScheduleID)
}

func TestApproveFlow(t *testing.T) {
	r, sender := setupTestRouter(t, approvalSpace())

	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:00", "11:00"), requester)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := scheduleIDFrom(t, env)
	sender.AssertNumberOfCalls(t, "SendApprovalRequest", 1)

	path := "/api/v1/schedules/" + strconv.FormatInt(id, 10)

	rr, env = doJSONRequest(r, http.MethodPost, path+"/approve", nil, outsiderID)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rr, _ = doJSONRequest(r, http.MethodPost, path+"/approve", nil, approverID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sender.AssertNumberOfCalls(t, "SendApproved", 1)

	rr, env = doJSONRequest(r, http.MethodPost, path+"/reject", map[string]any{"reason": "late"}, approverID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", env.Error.Code)

	rr, env = doJSONRequest(r, http.MethodGet, path, nil, requester)
	require.Equal(t, http.StatusOK, rr.Code)
	var data struct {
		Schedule domain.Schedule `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, domain.ScheduleConfirmed, data.Schedule.Status)
}

func TestScheduleByID_NotFoundAndBadID(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	rr, env := doJSONRequest(r, http.MethodGet, "/api/v1/schedules/999", nil, requester)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "SCHEDULE_NOT_FOUND", env.Error.Code)

	rr, env = doJSONRequest(r, http.MethodDelete, "/api/v1/schedules/abc", nil, requester)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)
}

func TestCheckConflictsEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	rr, _ := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:00", "11:00"), requester)
	require.Equal(t, http.StatusCreated, rr.Code)

	body := createBody("10:30", "11:30")
	delete(body, "title")
	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/schedules/conflicts", body, outsiderID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report ConflictReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.HasConflict)
	assert.Len(t, report.Conflicts, 1)
}

func TestSpaceOccurrencesEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	body := createBody("10:00", "11:00")
	body["rrule"] = "FREQ=DAILY;COUNT=5"
	rr, _ := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", body, requester)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := doJSONRequest(r, http.MethodGet, "/api/v1/spaces/10/occurrences?from=2024-03-15&to=2024-03-17", nil, requester)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var data struct {
		Occurrences []domain.ScheduleOccurrence `json:"occurrences"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Occurrences, 2)

	rr, env = doJSONRequest(r, http.MethodGet, "/api/v1/spaces/10/occurrences?from=15-03-2024&to=2024-03-17", nil, requester)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_DATE_FORMAT", env.Error.Code)
}

func TestListSchedules_StatusFilter(t *testing.T) {
	r, _ := setupTestRouter(t, openSpace())

	rr, _ := doJSONRequest(r, http.MethodPost, "/api/v1/schedules", createBody("10:00", "11:00"), requester)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := doJSONRequest(r, http.MethodGet, "/api/v1/schedules?status=pending&space_id=10", nil, requester)
	require.Equal(t, http.StatusOK, rr.Code)
	var data struct {
		Schedules []domain.Schedule `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Schedules, 1)

	rr, env = doJSONRequest(r, http.MethodGet, "/api/v1/schedules?status=archived", nil, requester)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}
