package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestCORSExposesCartSessionHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status want 204 got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), handlershared.CartSessionHeader) {
		t.Fatalf("allow headers should include cart session header, got %s", w.Header().Get("Access-Control-Allow-Headers"))
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), handlershared.CartSessionHeader) {
		t.Fatalf("expose headers should include cart session header")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(requestIDKey)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"bearer abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("bearerToken(%q) want (%q,%v) got (%q,%v)", tc.header, tc.want, tc.ok, got, ok)
		}
	}
}

type middlewareTestEnv struct {
	db      *gorm.DB
	auth    *service.AuthService
	vendors *service.VendorService
}

func setupMiddlewareTest(t *testing.T) *middlewareTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{NowFunc: models.NowUTC})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	userRepo := repository.NewUserRepository(db)
	return &middlewareTestEnv{
		db:      db,
		auth:    service.NewAuthService(config.JWTConfig{SecretKey: "router-test-secret", ExpireHours: 1}, userRepo),
		vendors: service.NewVendorService(repository.NewVendorRepository(db), userRepo),
	}
}

func (env *middlewareTestEnv) createUser(t *testing.T, email, userType, role string) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		UserType:     userType,
		Role:         role,
		Status:       constants.UserStatusActive,
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	token, _, err := env.auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	return user, token
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, string(body))
	}
	return resp.Data.Code
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := setupMiddlewareTest(t)
	customer, customerToken := env.createUser(t, "buyer@example.com", constants.UserTypeCustomer, "")
	_, staffToken := env.createUser(t, "ops@example.com", constants.UserTypeStaff, "support")

	r := gin.New()
	r.GET("/orders", AuthMiddleware(env.auth, constants.UserTypeCustomer), func(c *gin.Context) {
		userID, _ := handlershared.GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "user_type": handlershared.GetUserType(c)})
	})

	do := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header want 401 got %d", w.Code)
	}
	if w := do("Bearer not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token want 401 got %d", w.Code)
	}
	if w := do("Bearer " + staffToken); w.Code != http.StatusForbidden {
		t.Fatalf("staff on customer route want 403 got %d", w.Code)
	}

	w := do("Bearer " + customerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("customer want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		UserID   uint   `json:"user_id"`
		UserType string `json:"user_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.UserID != customer.ID || resp.UserType != constants.UserTypeCustomer {
		t.Fatalf("context identity mismatch: %+v", resp)
	}

	if err := env.db.Model(&models.User{}).Where("id = ?", customer.ID).
		Updates(map[string]interface{}{"token_version": gorm.Expr("token_version + 1")}).Error; err != nil {
		t.Fatalf("bump token version failed: %v", err)
	}
	w = do("Bearer " + customerToken)
	if w.Code != http.StatusUnauthorized || decodeErrorCode(t, w.Body.Bytes()) != "token_revoked" {
		t.Fatalf("stale token want 401 token_revoked got %d %s", w.Code, w.Body.String())
	}

	if err := env.db.Model(&models.User{}).Where("id = ?", customer.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	w = do("Bearer " + customerToken)
	if w.Code != http.StatusUnauthorized || decodeErrorCode(t, w.Body.Bytes()) != "user_disabled" {
		t.Fatalf("disabled user want 401 user_disabled got %d %s", w.Code, w.Body.String())
	}
}

func TestVendorScopeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := setupMiddlewareTest(t)
	ctx := context.Background()

	vendor, err := env.vendors.Create(ctx, service.CreateVendorInput{
		Name:     "Atelier Nord",
		Email:    "nord@vendors.test",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("create vendor failed: %v", err)
	}

	scoped := func(userType string, userID uint) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/admin/orders", func(c *gin.Context) {
			c.Set(handlershared.CtxUserID, userID)
			c.Set(handlershared.CtxUserType, userType)
			c.Next()
		}, VendorScopeMiddleware(env.vendors), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"vendor_id": handlershared.ScopeVendorID(c)})
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
		return w
	}

	w := scoped(constants.UserTypeAdmin, 1)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"vendor_id":0`) {
		t.Fatalf("admin should see platform scope, got %d %s", w.Code, w.Body.String())
	}

	w = scoped(constants.UserTypeVendor, vendor.UserID)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), fmt.Sprintf(`"vendor_id":%d`, vendor.ID)) {
		t.Fatalf("vendor should be scoped to own id, got %d %s", w.Code, w.Body.String())
	}

	w = scoped(constants.UserTypeVendor, 9999)
	if w.Code != http.StatusForbidden {
		t.Fatalf("vendor user without vendor want 403 got %d", w.Code)
	}

	status := constants.VendorStatusSuspended
	if _, err := env.vendors.Update(ctx, vendor.ID, service.UpdateVendorInput{Status: &status}); err != nil {
		t.Fatalf("suspend vendor failed: %v", err)
	}
	w = scoped(constants.UserTypeVendor, vendor.UserID)
	if w.Code != http.StatusForbidden {
		t.Fatalf("suspended vendor want 403 got %d", w.Code)
	}
}
