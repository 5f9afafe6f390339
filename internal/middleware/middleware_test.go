package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/testutil"
	"github.com/javajoker/storefront-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseAcceptLanguage(t *testing.T) {
	cases := map[string]string{
		"":                        "en",
		"zh-TW,zh;q=0.9,en;q=0.8": "zh_TW",
		"zh":                      "zh_TW",
		"en-GB;q=0.8":             "en",
		"fr-FR,fr;q=0.9":          "en",
		" zh-Hant , en":           "zh_TW",
	}
	for header, want := range cases {
		assert.Equal(t, want, parseAcceptLanguage(header, "en"), header)
	}
}

func TestI18nMiddlewareSetsContext(t *testing.T) {
	r := gin.New()
	r.Use(I18nMiddleware(""))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, utils.GetLangFromContext(c)+"|"+i18n.LangFrom(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "zh-TW")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "zh_TW|zh_TW", w.Body.String())
}

func TestExtractResource(t *testing.T) {
	assert.Equal(t, "products", extractResourceType("/v1/admin/products/3/restore"))
	assert.Equal(t, "orders", extractResourceType("/v1/orders"))
	assert.Equal(t, "unknown", extractResourceType("/v1/admin"))

	assert.Equal(t, "3", extractResourceID("/v1/admin/products/3/restore"))
	assert.Equal(t, "0190a6f0-7b1c-7cc2-8a4e-0d4f5e6a7b8c", extractResourceID("/v1/orders/0190a6f0-7b1c-7cc2-8a4e-0d4f5e6a7b8c"))
	assert.Equal(t, "", extractResourceID("/v1/admin/dashboard"))
}

func authorizedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/", append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })...)
	return r
}

func requestWithToken(t *testing.T, r *gin.Engine, role models.UserRole) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		token, err := utils.GenerateJWT(7, "someone@example.com", string(role), 1)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRoleGuards(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")

	admin := authorizedRouter(AuthRequired(), AdminRequired())
	assert.Equal(t, http.StatusUnauthorized, requestWithToken(t, admin, ""))
	assert.Equal(t, http.StatusForbidden, requestWithToken(t, admin, models.UserRoleCustomer))
	assert.Equal(t, http.StatusOK, requestWithToken(t, admin, models.UserRoleAdmin))

	customer := authorizedRouter(AuthRequired(), CustomerRequired())
	assert.Equal(t, http.StatusForbidden, requestWithToken(t, customer, models.UserRoleAdmin))
	assert.Equal(t, http.StatusOK, requestWithToken(t, customer, models.UserRoleCustomer))
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	r := authorizedRouter(AuthRequired())
	for _, header := range []string{"Token abc", "Bearer ", "Bearer not.a.jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	r := authorizedRouter(limiter.Middleware())

	assert.Equal(t, http.StatusOK, requestWithToken(t, r, ""))
	assert.Equal(t, http.StatusOK, requestWithToken(t, r, ""))
	assert.Equal(t, http.StatusTooManyRequests, requestWithToken(t, r, ""))

	limiter.prune(0)
	assert.Empty(t, limiter.visitors)
	assert.Equal(t, http.StatusOK, requestWithToken(t, r, ""), "a pruned visitor starts with a fresh bucket")
}

func TestAuditLogMiddleware(t *testing.T) {
	db := testutil.NewTestDB(t)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", uint(42)) }, AuditLogMiddleware(db))
	r.POST("/v1/admin/customers", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/v1/admin/customers", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := `{"name":"Jane","password":"Secret123","password_confirmation":"Secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/admin/customers", nil))

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "POST /v1/admin/customers", logs[0].Action)
	assert.Equal(t, "customers", logs[0].ResourceType)
	assert.Equal(t, http.StatusCreated, logs[0].Status)
	assert.Equal(t, uint(42), *logs[0].UserID)
	assert.Equal(t, "Jane", logs[0].NewValues["name"])
	assert.NotContains(t, logs[0].NewValues, "password")
	assert.NotContains(t, logs[0].NewValues, "password_confirmation")
}
