package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sms-core-api/internal/middleware"
	"github.com/noah-isme/sms-core-api/internal/models"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

func testRouter(srv *fakeEnrollmentSrv, granted ...string) *gin.Engine {
	return testRouterWithStudents(srv, &fakeStudentSrv{}, granted...)
}

func testRouterWithStudents(srv *fakeEnrollmentSrv, studentSrv *fakeStudentSrv, granted ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	grants := map[string]bool{}
	for _, g := range granted {
		grants[g] = true
	}
	r := gin.New()
	Register(r, "/api/v1", Handlers{
		Enrollment: NewEnrollmentHandler(srv),
		Attendance: NewAttendanceHandler(&fakeAttendanceSrv{}),
		Student:    NewStudentHandler(studentSrv),
		Health:     NewHealthHandler(nil),
		Metrics:    http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	}, Guards{
		Auth: func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
			c.Next()
		},
		Require: func(codename string) gin.HandlerFunc {
			return func(c *gin.Context) {
				if !grants[codename] {
					response.Error(c, appErrors.ErrForbidden)
					c.Abort()
					return
				}
				c.Next()
			}
		},
	})
	return r
}

func call(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil).WithContext(context.Background()))
	return rec
}

func TestRegisterRoutesStaticBeforeParam(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	r := testRouter(srv, models.PermEnrollmentsView, models.PermEnrollmentsEdit)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/enrollments/statistics?course_id=c1").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/enrollments/e9").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/enrollments/e9/progress").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/v1/enrollments/e9/activate").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/enrollments?status=WITHDRAWN").Code)
	assert.Equal(t, []string{"statistics:c1", "get:e9", "progress:e9", "activate", "list:withdrawn"}, srv.calls)
}

func TestRegisterRoutesEnforcesPermissions(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	r := testRouter(srv, models.PermEnrollmentsView)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/enrollments/e1/withdraw").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/attendance/summary").Code)
	assert.Empty(t, srv.calls)
}

func TestRegisterRoutesOpsEndpointsAreOpen(t *testing.T) {
	r := testRouter(&fakeEnrollmentSrv{})

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ready").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/metrics").Code)
}

func TestRegisterStudentRoutes(t *testing.T) {
	students := &fakeStudentSrv{}
	r := testRouterWithStudents(&fakeEnrollmentSrv{}, students, models.PermStudentsView)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/students/s1").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/students/s1/dashboard").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPatch, "/api/v1/students/s1").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/students").Code)
	assert.Equal(t, []string{"get:s1", "dashboard:s1"}, students.calls)
}
