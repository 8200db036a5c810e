package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"studyplan/backend/config"
	"studyplan/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWTManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "middleware-test-secret-0123456789",
		Issuer:         "study-plan",
		AccessTokenTTL: time.Hour,
	})
}

// echoStudent 返回上下文中的 student_id，用于断言中间件注入结果
func echoStudent(c *gin.Context) {
	c.String(http.StatusOK, c.GetString("student_id"))
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	r := gin.New()
	r.GET("/p", JWTAuth(newJWTManager()), echoStudent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际: %d", w.Code)
	}
}

func TestJWTAuth_BadScheme(t *testing.T) {
	r := gin.New()
	r.GET("/p", JWTAuth(newJWTManager()), echoStudent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际: %d", w.Code)
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	mgr := newJWTManager()
	token, err := mgr.GenerateAccessToken("stu-42", "student")
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}

	r := gin.New()
	r.GET("/p", JWTAuth(mgr), echoStudent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if w.Body.String() != "stu-42" {
		t.Errorf("期望注入 student_id=stu-42，实际: %s", w.Body.String())
	}
}

func TestJWTAuth_ForeignSecret(t *testing.T) {
	other := jwt.NewManager(&config.AuthConfig{JWTSecret: "another-secret-0123456789abcdef", Issuer: "study-plan"})
	token, _ := other.GenerateAccessToken("stu-42", "student")

	r := gin.New()
	r.GET("/p", JWTAuth(newJWTManager()), echoStudent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际: %d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("role", role)
			c.Next()
		}
	}

	r := gin.New()
	r.GET("/student", withRole("student"), RoleAuth("admin"), echoStudent)
	r.GET("/admin", withRole("admin"), RoleAuth("admin"), echoStudent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/student", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("学生访问期望 403，实际: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	if w.Code != http.StatusOK {
		t.Errorf("管理员访问期望 200，实际: %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set(requestIDHeader, "trace-abc")
	r.ServeHTTP(w, req)
	if w.Body.String() != "trace-abc" {
		t.Errorf("期望沿用传入的 Request-ID，实际: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("超长 Request-ID 期望被替换为 UUID，实际: %s", got)
	}
}

func TestRateLimit_NilRedisPasses(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute))
	r.GET("/p", echoStudent)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("无 Redis 时期望放行，第 %d 次实际: %d", i, w.Code)
		}
	}
}

func TestBodyLimit_RejectsLargeContentLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/p", echoStudent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/p", strings.NewReader(`{"course_id":"too-long"}`)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际: %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/p", echoStudent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("期望设置 X-Content-Type-Options")
	}
}
