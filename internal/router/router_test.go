package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/testutil"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const publicURL = "http://localhost:8080/media"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
	Meta struct {
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

type APITestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	admin    *models.User
	customer *models.User
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
}

func (s *APITestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	cfg := &config.Config{
		JWT:       config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
		Storage:   config.StorageConfig{Driver: services.DiskLocal, MaxImageSize: 1024},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		I18n:      config.I18nConfig{DefaultLocale: "en"},
	}
	store := services.NewLocalStore(s.T().TempDir(), publicURL)
	s.router = Initialize(s.db, cfg, store, services.NopNotifier{})
	s.admin = testutil.CreateAdmin(s.T(), s.db)
	s.customer = testutil.CreateCustomer(s.T(), s.db)
}

func (s *APITestSuite) token(u *models.User) string {
	token, err := utils.GenerateJWT(u.ID, u.Email, string(u.Role), 1)
	s.Require().NoError(err)
	return token
}

func (s *APITestSuite) do(method, path string, body interface{}, as *models.User) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(as))
	}
	return s.serve(req)
}

func (s *APITestSuite) serve(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (s *APITestSuite) TestHealth() {
	w, _ := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestRegisterAndLogin() {
	w, resp := s.do(http.MethodPost, "/v1/auth/register", gin.H{
		"name":                  "New Customer",
		"email":                 "new@example.com",
		"password":              "TestPass123",
		"password_confirmation": "TestPass123",
	}, nil)
	s.Equal(http.StatusCreated, w.Code)
	s.True(resp.Success)

	w, resp = s.do(http.MethodPost, "/v1/auth/login", gin.H{"email": "new@example.com", "password": "TestPass123"}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var payload struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &payload))
	s.NotEmpty(payload.Token)
	s.Equal(models.UserRoleCustomer, payload.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Token)
	w, _ = s.serve(req)
	s.Equal(http.StatusOK, w.Code)

	w, resp = s.do(http.MethodPost, "/v1/auth/login", gin.H{"email": "new@example.com", "password": "nope"}, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(resp.Success)
}

func (s *APITestSuite) TestMalformedJSON() {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w, resp := s.serve(req)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("BAD_REQUEST", resp.Error.Code)
	s.NotEmpty(resp.Error.Details["request"])
}

func (s *APITestSuite) TestAuthenticationAndRoles() {
	w, resp := s.do(http.MethodGet, "/v1/orders", nil, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Authentication required", resp.Error.Message)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w, _ = s.serve(req)
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodGet, "/v1/admin/dashboard", nil, s.customer)
	s.Equal(http.StatusForbidden, w.Code)

	w, resp = s.do(http.MethodPost, "/v1/orders", gin.H{}, s.admin)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Only customers can place orders.", resp.Error.Message)
}

func (s *APITestSuite) TestLocalizedErrors() {
	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	_, resp := s.serve(req)
	s.Equal("需要身分驗證", resp.Error.Message)
}

func (s *APITestSuite) TestCheckoutFlow() {
	product := testutil.CreateProduct(s.T(), s.db, testutil.WithPrice("12.50"), testutil.WithQuantity(3))

	body := gin.H{
		"address":        gin.H{"street_address": "1 Main St", "city": "Springfield"},
		"order_products": []gin.H{{"product_id": product.ID, "quantity": 2}},
	}
	w, resp := s.do(http.MethodPost, "/v1/orders", body, s.customer)
	s.Require().Equal(http.StatusCreated, w.Code)
	var order struct {
		UUID       string `json:"uuid"`
		Status     string `json:"status"`
		TotalPrice string `json:"total_price"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &order))
	s.Equal("new", order.Status)
	s.Equal("25", order.TotalPrice)

	w, resp = s.do(http.MethodGet, "/v1/orders", nil, s.customer)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), resp.Meta.Pagination.Total)
	s.Equal("1", w.Header().Get("X-Total-Count"))

	w, _ = s.do(http.MethodGet, "/v1/orders/"+order.UUID, nil, s.customer)
	s.Equal(http.StatusOK, w.Code)

	other := testutil.CreateCustomer(s.T(), s.db)
	w, resp = s.do(http.MethodGet, "/v1/orders/"+order.UUID, nil, other)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Order not found", resp.Error.Message)

	w, _ = s.do(http.MethodGet, "/v1/orders/not-a-uuid", nil, s.customer)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestCheckoutValidation() {
	product := testutil.CreateProduct(s.T(), s.db, testutil.WithQuantity(1))
	hidden := testutil.CreateProduct(s.T(), s.db, testutil.Unpublished())

	body := gin.H{
		"address": gin.H{"street_address": "1 Main St", "city": "Springfield"},
		"order_products": []gin.H{
			{"product_id": product.ID, "quantity": 2},
			{"product_id": hidden.ID, "quantity": 1},
		},
	}
	w, resp := s.do(http.MethodPost, "/v1/orders", body, s.customer)
	s.Require().Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)
	s.Contains(resp.Error.Details, "order_products.0.quantity")
	s.Contains(resp.Error.Details, "order_products.1.product_id")

	var count int64
	s.db.Model(&models.Order{}).Count(&count)
	s.Zero(count)
}

func (s *APITestSuite) TestPublicCatalog() {
	visible := testutil.CreateProduct(s.T(), s.db)
	hidden := testutil.CreateProduct(s.T(), s.db, testutil.Unpublished())

	w, resp := s.do(http.MethodGet, "/v1/products", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), resp.Meta.Pagination.Total)

	w, _ = s.do(http.MethodGet, fmt.Sprintf("/v1/products/%d", visible.ID), nil, nil)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, fmt.Sprintf("/v1/products/%d", hidden.ID), nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodGet, "/v1/products/abc", nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestAdminProductLifecycleIsAudited() {
	category := testutil.CreateCategory(s.T(), s.db)

	w, resp := s.do(http.MethodPost, "/v1/admin/products", gin.H{
		"name":         "Lamp",
		"slug":         "lamp",
		"description":  "Bright",
		"is_published": true,
		"quantity":     4,
		"price":        "30.00",
		"old_price":    "25.00",
		"categories":   []uint{category.ID},
	}, s.admin)
	s.Require().Equal(http.StatusCreated, w.Code)
	var product models.Product
	s.Require().NoError(json.Unmarshal(resp.Data, &product))
	s.Len(product.Categories, 1)

	path := fmt.Sprintf("/v1/admin/products/%d", product.ID)
	w, _ = s.do(http.MethodDelete, path, nil, s.admin)
	s.Equal(http.StatusNoContent, w.Code)
	w, _ = s.do(http.MethodGet, path, nil, s.admin)
	s.Equal(http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodGet, path+"?with_trashed=true", nil, s.admin)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPut, path+"/restore", nil, s.admin)
	s.Equal(http.StatusOK, w.Code)

	var logs []models.AuditLog
	s.Require().NoError(s.db.Order("id").Find(&logs).Error)
	s.Require().Len(logs, 3)
	s.Equal("POST /v1/admin/products", logs[0].Action)
	s.Equal("products", logs[0].ResourceType)
	s.Equal(http.StatusCreated, logs[0].Status)
	s.Equal(s.admin.ID, *logs[0].UserID)
	s.Equal("DELETE /v1/admin/products/:id", logs[1].Action)
	s.Equal(fmt.Sprint(product.ID), logs[1].ResourceID)
}

func (s *APITestSuite) TestAdminOrderStatus() {
	product := testutil.CreateProduct(s.T(), s.db)
	order := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: product, Quantity: 1})
	path := fmt.Sprintf("/v1/admin/orders/%d", order.ID)

	w, _ := s.do(http.MethodPut, path, gin.H{"status": "processing"}, s.admin)
	s.Equal(http.StatusOK, w.Code)

	w, resp := s.do(http.MethodPut, path, gin.H{"status": "new"}, s.admin)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(resp.Error.Details, "status")

	w, resp = s.do(http.MethodGet, "/v1/admin/orders?status=processing", nil, s.admin)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), resp.Meta.Pagination.Total)
}

func (s *APITestSuite) TestDashboard() {
	testutil.CreateProduct(s.T(), s.db, testutil.WithQuantity(2))
	testutil.CreateOrder(s.T(), s.db, s.customer)

	w, resp := s.do(http.MethodGet, "/v1/admin/dashboard", nil, s.admin)
	s.Require().Equal(http.StatusOK, w.Code)

	var dashboard struct {
		ProductsCount struct {
			Published int64 `json:"published"`
		} `json:"products_count"`
		OrdersCount       int64 `json:"orders_count"`
		CustomersCount    int64 `json:"customers_count"`
		OutstandingOrders struct {
			Total int64 `json:"total"`
		} `json:"outstanding_orders"`
		ShortProducts []json.RawMessage `json:"short_products"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &dashboard))
	s.Equal(int64(1), dashboard.ProductsCount.Published)
	s.Equal(int64(1), dashboard.OrdersCount)
	s.Equal(int64(1), dashboard.CustomersCount)
	s.Equal(int64(1), dashboard.OutstandingOrders.Total)
	s.Len(dashboard.ShortProducts, 1)
}

func (s *APITestSuite) TestUploadAttachmentIsServed() {
	var img bytes.Buffer
	s.Require().NoError(png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 20, 10))))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "swatch.png")
	s.Require().NoError(err)
	_, err = part.Write(img.Bytes())
	s.Require().NoError(err)
	s.Require().NoError(form.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/attachments", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(s.admin))
	w, resp := s.serve(req)
	s.Require().Equal(http.StatusCreated, w.Code)

	var attachment models.Attachment
	s.Require().NoError(json.Unmarshal(resp.Data, &attachment))
	s.Require().Len(attachment.Media, 1)
	original := attachment.Media[0].OriginalURL
	s.True(strings.HasPrefix(original, publicURL+"/"))

	w, _ = s.serve(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(original, "http://localhost:8080"), nil))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(img.Bytes(), w.Body.Bytes())

	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/v1/admin/attachments/%d", attachment.ID), nil, s.admin)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *APITestSuite) TestUploadWithoutImage() {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	s.Require().NoError(form.WriteField("note", "empty"))
	s.Require().NoError(form.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/attachments", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(s.admin))
	w, resp := s.serve(req)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal([]string{"The image field is required."}, resp.Error.Details["image"])
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
