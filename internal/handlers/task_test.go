package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/bounty-flow-api/internal/auth"
	"github.com/yukikurage/bounty-flow-api/internal/constants"
	"github.com/yukikurage/bounty-flow-api/internal/database"
	"github.com/yukikurage/bounty-flow-api/internal/dto"
	apierrors "github.com/yukikurage/bounty-flow-api/internal/errors"
	"github.com/yukikurage/bounty-flow-api/internal/middleware"
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"github.com/yukikurage/bounty-flow-api/internal/repository"
	"github.com/yukikurage/bounty-flow-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *services.BountyService
	handler *TaskHandler
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	// Run migrations
	suite.Require().NoError(database.MigrateDatabase(suite.db))

	// Set the test DB as the default database
	database.SetDB(suite.db)

	// Create handler (without AI service for tests)
	suite.service = services.NewBountyService(repository.NewStore(suite.db), auth.NewContextGuard(), nil)
	suite.handler = NewTaskHandler(suite.service)

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper function to create test data
func (suite *TaskHandlerTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTask(creator *models.User, title string, amount int64) uint64 {
	ctx := auth.WithPrincipal(context.Background(), creator.ID)
	id, err := suite.service.CreateTask(ctx, creator.ID, title, amount)
	suite.Require().NoError(err)
	return id
}

// Helper function to create authenticated context
func (suite *TaskHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	middleware.SetPrincipal(c, userID)

	return c, w
}

// Helper function to set task context (simulates RequireTaskID middleware)
func (suite *TaskHandlerTestSuite) setTaskID(c *gin.Context, taskID uint64) {
	c.Set(constants.ContextKeyTaskID, taskID)
}

func (suite *TaskHandlerTestSuite) decodeError(w *httptest.ResponseRecorder) apierrors.APIError {
	var apiErr apierrors.APIError
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

// TestCreateTask_Success tests successful task creation
func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	user := suite.createTestUser("alice")

	body, _ := json.Marshal(map[string]interface{}{
		"title":  "Fix login bug",
		"amount": 100,
	})
	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response map[string]uint64
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), uint64(1), response["id"])
}

// TestCreateTask_InvalidAmount tests that zero amounts are rejected
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidAmount() {
	user := suite.createTestUser("alice")

	body, _ := json.Marshal(map[string]interface{}{
		"title":  "Free work",
		"amount": 0,
	})
	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeInvalidAmount, suite.decodeError(w).Code)

	count, err := suite.service.TaskCount()
	suite.Require().NoError(err)
	assert.Equal(suite.T(), uint64(0), count)
}

// TestCreateTask_ForeignCreator tests creating on behalf of another principal
func (suite *TaskHandlerTestSuite) TestCreateTask_ForeignCreator() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")

	body, _ := json.Marshal(map[string]interface{}{
		"creator_id": alice.ID,
		"title":      "Impersonated",
		"amount":     100,
	})
	c, w := suite.createAuthContext("POST", "/api/tasks", body, bob.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeUnauthorized, suite.decodeError(w).Code)
}

// TestCreateTask_InvalidRequest tests task creation with a malformed body
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidRequest() {
	user := suite.createTestUser("alice")

	c, w := suite.createAuthContext("POST", "/api/tasks", []byte("invalid json"), user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateTask_Unauthenticated tests creation without a principal
func (suite *TaskHandlerTestSuite) TestCreateTask_Unauthenticated() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/tasks", bytes.NewReader([]byte(`{"title":"x","amount":1}`)))

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestSubmitWork_Success tests a first submission with an empty body
func (suite *TaskHandlerTestSuite) TestSubmitWork_Success() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/submit", nil, bob.ID)
	suite.setTaskID(c, taskID)

	suite.handler.SubmitWork(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"success":true}`, w.Body.String())

	summary, err := suite.service.GetTask(taskID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "completed", summary.Status)
}

// TestSubmitWork_AlreadyCompleted tests that a second submission conflicts
func (suite *TaskHandlerTestSuite) TestSubmitWork_AlreadyCompleted() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	carol := suite.createTestUser("carol")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/submit", nil, bob.ID)
	suite.setTaskID(c, taskID)
	suite.handler.SubmitWork(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	c, w = suite.createAuthContext("POST", "/api/tasks/1/submit", nil, carol.ID)
	suite.setTaskID(c, taskID)
	suite.handler.SubmitWork(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeAlreadyCompleted, suite.decodeError(w).Code)
}

// TestSubmitWork_TaskNotFound tests submission to an unknown task
func (suite *TaskHandlerTestSuite) TestSubmitWork_TaskNotFound() {
	bob := suite.createTestUser("bob")

	c, w := suite.createAuthContext("POST", "/api/tasks/99/submit", nil, bob.ID)
	suite.setTaskID(c, 99)

	suite.handler.SubmitWork(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeTaskNotFound, suite.decodeError(w).Code)
}

// TestSubmitWork_ChunkedEmptyBody tests a body of unknown length that turns out empty
func (suite *TaskHandlerTestSuite) TestSubmitWork_ChunkedEmptyBody() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/submit", []byte{}, bob.ID)
	c.Request.ContentLength = -1
	suite.setTaskID(c, taskID)

	suite.handler.SubmitWork(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"success":true}`, w.Body.String())
}

// TestSubmitWork_ChunkedBodyStillBound tests that a chunked body is decoded
func (suite *TaskHandlerTestSuite) TestSubmitWork_ChunkedBodyStillBound() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	body, _ := json.Marshal(map[string]interface{}{"freelancer_id": alice.ID})
	c, w := suite.createAuthContext("POST", "/api/tasks/1/submit", body, bob.ID)
	c.Request.ContentLength = -1
	suite.setTaskID(c, taskID)

	suite.handler.SubmitWork(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestSubmitWork_MissingTaskID tests the handler without RequireTaskID
func (suite *TaskHandlerTestSuite) TestSubmitWork_MissingTaskID() {
	bob := suite.createTestUser("bob")

	c, w := suite.createAuthContext("POST", "/api/tasks/x/submit", nil, bob.ID)

	suite.handler.SubmitWork(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestReleaseFunds_Success tests paying out a completed task
func (suite *TaskHandlerTestSuite) TestReleaseFunds_Success() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, _ := suite.createAuthContext("POST", "/api/tasks/1/submit", nil, bob.ID)
	suite.setTaskID(c, taskID)
	suite.handler.SubmitWork(c)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/release", nil, alice.ID)
	suite.setTaskID(c, taskID)
	suite.handler.ReleaseFunds(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"success":true}`, w.Body.String())
}

// TestReleaseFunds_NotCompleted tests releasing before any submission
func (suite *TaskHandlerTestSuite) TestReleaseFunds_NotCompleted() {
	alice := suite.createTestUser("alice")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/release", nil, alice.ID)
	suite.setTaskID(c, taskID)
	suite.handler.ReleaseFunds(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeNotCompleted, suite.decodeError(w).Code)
}

// TestReleaseFunds_NotCreator tests that only the creator may release
func (suite *TaskHandlerTestSuite) TestReleaseFunds_NotCreator() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, _ := suite.createAuthContext("POST", "/api/tasks/1/submit", nil, bob.ID)
	suite.setTaskID(c, taskID)
	suite.handler.SubmitWork(c)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/release", nil, bob.ID)
	suite.setTaskID(c, taskID)
	suite.handler.ReleaseFunds(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeUnauthorized, suite.decodeError(w).Code)
}

// TestReleaseFunds_AlreadyPaid tests a second release
func (suite *TaskHandlerTestSuite) TestReleaseFunds_AlreadyPaid() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	c, _ := suite.createAuthContext("POST", "/api/tasks/1/submit", nil, bob.ID)
	suite.setTaskID(c, taskID)
	suite.handler.SubmitWork(c)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/release", nil, alice.ID)
	suite.setTaskID(c, taskID)
	suite.handler.ReleaseFunds(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	c, w = suite.createAuthContext("POST", "/api/tasks/1/release", nil, alice.ID)
	suite.setTaskID(c, taskID)
	suite.handler.ReleaseFunds(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeAlreadyPaid, suite.decodeError(w).Code)
}

// TestGetTask_Success tests the public projection
func (suite *TaskHandlerTestSuite) TestGetTask_Success() {
	alice := suite.createTestUser("alice")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks/1", nil)
	suite.setTaskID(c, taskID)

	suite.handler.GetTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"task":{"title":"Fix login bug","status":"pending"}}`, w.Body.String())
}

// TestGetTask_Unknown tests that unknown IDs answer with a null task
func (suite *TaskHandlerTestSuite) TestGetTask_Unknown() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks/42", nil)
	suite.setTaskID(c, 42)

	suite.handler.GetTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"task":null}`, w.Body.String())
}

// TestGetTaskDetail_HidesFreelancerWhilePending tests the detail view
func (suite *TaskHandlerTestSuite) TestGetTaskDetail_HidesFreelancerWhilePending() {
	alice := suite.createTestUser("alice")
	taskID := suite.createTestTask(alice, "Fix login bug", 100)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks/1/detail", nil)
	suite.setTaskID(c, taskID)

	suite.handler.GetTaskDetail(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskDTO
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), taskID, response.ID)
	assert.Equal(suite.T(), int64(100), response.Amount)
	assert.Equal(suite.T(), alice.ID, response.CreatorID)
	assert.Nil(suite.T(), response.FreelancerID)
	if assert.NotNil(suite.T(), response.Creator) {
		assert.Equal(suite.T(), "alice", response.Creator.Username)
	}
}

// TestGetTaskDetail_NotFound tests the detail view of an unknown task
func (suite *TaskHandlerTestSuite) TestGetTaskDetail_NotFound() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks/7/detail", nil)
	suite.setTaskID(c, 7)

	suite.handler.GetTaskDetail(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestListTasks_Filters tests listing by creator, freelancer and status
func (suite *TaskHandlerTestSuite) TestListTasks_Filters() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")
	first := suite.createTestTask(alice, "First", 100)
	suite.createTestTask(alice, "Second", 200)
	suite.createTestTask(bob, "Third", 300)

	ctx := auth.WithPrincipal(context.Background(), bob.ID)
	_, err := suite.service.SubmitWork(ctx, first, bob.ID)
	suite.Require().NoError(err)

	cases := []struct {
		query  string
		titles []string
	}{
		{"", []string{"First", "Second", "Third"}},
		{"creator_id=1", []string{"First", "Second"}},
		{"freelancer_id=2", []string{"First"}},
		{"status=pending", []string{"Second", "Third"}},
		{"creator_id=1&status=completed", []string{"First"}},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/api/tasks?"+tc.query, nil)

		suite.handler.ListTasks(c)

		suite.Require().Equal(http.StatusOK, w.Code, tc.query)

		var response dto.TaskListResponse
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
		titles := make([]string, len(response.Tasks))
		for i, task := range response.Tasks {
			titles[i] = task.Title
		}
		assert.Equal(suite.T(), tc.titles, titles, tc.query)
		assert.Equal(suite.T(), int64(len(tc.titles)), response.TotalCount, tc.query)
	}
}

// TestListTasks_InvalidStatus tests an unknown status filter
func (suite *TaskHandlerTestSuite) TestListTasks_InvalidStatus() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks?status=cancelled", nil)

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestListTasks_Pagination tests page metadata
func (suite *TaskHandlerTestSuite) TestListTasks_Pagination() {
	alice := suite.createTestUser("alice")
	for i := 0; i < 3; i++ {
		suite.createTestTask(alice, "Task", 100)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/tasks?page=2&limit=2", nil)

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskListResponse
	assert.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response.Tasks, 1)
	assert.Equal(suite.T(), uint64(3), response.Tasks[0].ID)
	assert.Equal(suite.T(), 2, response.TotalPages)
}

// TestDraftTasks_NotConfigured tests drafting without an OpenAI key
func (suite *TaskHandlerTestSuite) TestDraftTasks_NotConfigured() {
	alice := suite.createTestUser("alice")

	body, _ := json.Marshal(map[string]string{"text": "Build me a landing page"})
	c, w := suite.createAuthContext("POST", "/api/tasks/drafts", body, alice.ID)

	suite.handler.DraftTasks(c)

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

// TestBountyLifecycle_OverSession drives the full flow through the router
func (suite *TaskHandlerTestSuite) TestBountyLifecycle_OverSession() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.POST("/login/:uid", func(c *gin.Context) {
		uid, _ := strconv.ParseUint(c.Param("uid"), 10, 64)
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, uid)
		suite.Require().NoError(session.Save())
		c.Status(http.StatusOK)
	})
	r.GET("/api/tasks/:id", middleware.RequireTaskID(), suite.handler.GetTask)
	r.POST("/api/tasks", middleware.RequireAuth(), suite.handler.CreateTask)
	r.POST("/api/tasks/:id/submit", middleware.RequireAuth(), middleware.RequireTaskID(), suite.handler.SubmitWork)
	r.POST("/api/tasks/:id/release", middleware.RequireAuth(), middleware.RequireTaskID(), suite.handler.ReleaseFunds)

	login := func(userID uint64) []*http.Cookie {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/login/"+strconv.FormatUint(userID, 10), nil))
		suite.Require().Equal(http.StatusOK, w.Code)
		return w.Result().Cookies()
	}
	do := func(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
			req.Header.Set("Content-Type", "application/json")
		}
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	aliceCookies := login(alice.ID)
	bobCookies := login(bob.ID)

	w := do("POST", "/api/tasks", `{"title":"Fix login bug","amount":100}`, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = do("POST", "/api/tasks", `{"title":"Fix login bug","amount":100}`, aliceCookies)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = do("POST", "/api/tasks/1/submit", "", bobCookies)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = do("POST", "/api/tasks/1/release", "", aliceCookies)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = do("GET", "/api/tasks/1", "", nil)
	assert.JSONEq(suite.T(), `{"task":{"title":"Fix login bug","status":"paid"}}`, w.Body.String())

	w = do("GET", "/api/tasks/0", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"task":null}`, w.Body.String())

	w = do("GET", "/api/tasks/abc", "", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = do("POST", "/api/tasks/0/submit", "", bobCookies)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeTaskNotFound, suite.decodeError(w).Code)

	w = do("POST", "/api/tasks/0/release", "", aliceCookies)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), apierrors.ErrCodeTaskNotFound, suite.decodeError(w).Code)
}

// TestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
