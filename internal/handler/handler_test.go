package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"refurb-store-api/internal/cache"
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/repository"
	"refurb-store-api/internal/service"
	"refurb-store-api/internal/testutil"
	"refurb-store-api/pkg/jwt"
	"refurb-store-api/pkg/money"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app        *fiber.App
	adminToken string
	techToken  string
	product    *model.Product
}

var system = model.Principal{Name: "system", Privileges: []string{model.PrivProductManage}}

func newTestServer(t *testing.T, checkoutPerMin int) *testServer {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)

	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	require.NoError(t, privilegeRepo.SeedDefaults(ctx))
	require.NoError(t, roleRepo.SeedDefaults(ctx))

	tax, err := money.NewTaxCalculator("18")
	require.NoError(t, err)
	reports := service.NewReportService(saleRepo, customerRepo, productRepo, movementRepo, cache.Nop{}, time.UTC, 5)
	ledger := service.NewStockLedger(db, productRepo, movementRepo, reports, nil)
	svc := Services{
		Auth:        service.NewAuthService(userRepo, jwt.NewManager("handler-secret", time.Hour, "refurb-store-test"), nil),
		Users:       service.NewUserService(userRepo, privilegeRepo, roleRepo),
		Products:    service.NewProductService(db, productRepo, ledger, reports, nil),
		Sales:       service.NewSaleService(db, saleRepo, productRepo, customerRepo, ledger, tax, reports, nil),
		Allocations: service.NewAllocationService(db, saleRepo, reports, nil),
		Customers:   service.NewCustomerService(customerRepo, saleRepo),
		Reports:     reports,
	}

	app := fiber.New()
	Register(app, svc, RouteOptions{CheckoutPerMin: checkoutPerMin})

	s := &testServer{app: app}
	s.adminToken = staffToken(t, svc, roleRepo, "admin@store.test", model.RoleMasterAdmin)
	s.techToken = staffToken(t, svc, roleRepo, "tech@store.test", model.RoleTechnician)

	s.product, err = svc.Products.CreateProduct(ctx, system, &model.Product{
		SKU: "IP-12", Name: "iPhone 12", Category: "Phones", Grade: model.GradeA, Price: 1000, Stock: 10,
	})
	require.NoError(t, err)
	return s
}

func staffToken(t *testing.T, svc Services, roles repository.RoleRepository, email, roleCode string) string {
	t.Helper()
	ctx := context.Background()
	role, err := roles.FindByCode(ctx, roleCode)
	require.NoError(t, err)
	_, err = svc.Users.CreateUser(ctx, system, &service.CreateUserRequest{
		Email: email, Password: "secret1", FullName: roleCode, RoleID: role.ID,
	})
	require.NoError(t, err)
	login, err := svc.Auth.Login(ctx, email, "secret1")
	require.NoError(t, err)
	return login.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func checkout(productID string, qty int) fiber.Map {
	return fiber.Map{
		"lineItems": []fiber.Map{{"productId": productID, "quantity": qty}},
		"customerInfo": fiber.Map{
			"name":    "Meera",
			"email":   "meera@x.com",
			"address": "12 MG Road, Bengaluru",
		},
	}
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestCheckoutShipAndReport(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, "POST", "/api/v1/storefront/checkout", "", checkout(s.product.ID.String(), 2))
	require.Equal(t, fiber.StatusCreated, status, body)
	sale := body["data"].(map[string]interface{})
	assert.Equal(t, "Online", sale["channel"])
	assert.Equal(t, "Processing", sale["status"])
	assert.Equal(t, float64(2360), sale["total_amount"])
	saleID := sale["id"].(string)
	itemID := sale["line_items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	status, body = s.do(t, "PATCH", "/api/v1/sales/"+saleID+"/status", s.adminToken, fiber.Map{"status": "Shipped"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INCOMPLETE_ALLOCATION", errorCode(body))

	status, body = s.do(t, "PATCH", "/api/v1/sales/"+saleID+"/serials", s.techToken, fiber.Map{
		"itemAllocations": []fiber.Map{{"itemId": itemID, "identifiers": []string{"X1", ""}}},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "BLANK_SERIAL", errorCode(body))
	assert.Equal(t, itemID, body["error"].(map[string]interface{})["item_id"])

	status, body = s.do(t, "PATCH", "/api/v1/sales/"+saleID+"/serials", s.techToken, fiber.Map{
		"itemAllocations": []fiber.Map{{"itemId": itemID, "identifiers": []string{"X1", "X2"}}},
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Shipped", body["data"].(map[string]interface{})["status"])

	status, body = s.do(t, "GET", "/api/v1/products/"+s.product.ID.String(), s.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(8), body["stock"])

	status, body = s.do(t, "GET", "/api/v1/reports/revenue?window=7d", s.adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	buckets := body["buckets"].([]interface{})
	require.Len(t, buckets, 7)
	today := buckets[6].(map[string]interface{})
	assert.Equal(t, float64(2360), today["revenue"])
	assert.Equal(t, float64(1), body["uniqueCustomerCount"])

	status, _ = s.do(t, "GET", "/api/v1/reports/revenue?window=1y", s.adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCheckoutErrors(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, "POST", "/api/v1/storefront/checkout", "", checkout(s.product.ID.String(), 11))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(body))
	assert.Equal(t, s.product.ID.String(), body["error"].(map[string]interface{})["product_id"])

	status, body = s.do(t, "POST", "/api/v1/storefront/checkout", "", fiber.Map{"lineItems": []fiber.Map{}})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "EMPTY_CART", errorCode(body))

	status, body = s.do(t, "POST", "/api/v1/storefront/checkout", "", checkout(s.product.ID.String(), 0))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", errorCode(body))
	assert.Equal(t, "lineItems[0].quantity", body["error"].(map[string]interface{})["field"])

	status, body = s.do(t, "POST", "/api/v1/storefront/checkout", "", "{not json")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", errorCode(body))
}

func TestStorefrontReads(t *testing.T) {
	s := newTestServer(t, 0)

	status, _ := s.do(t, "POST", "/api/v1/storefront/checkout", "", checkout(s.product.ID.String(), 1))
	require.Equal(t, fiber.StatusCreated, status)

	req := httptest.NewRequest("GET", "/api/v1/storefront/orders?email=MEERA@x.com", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var orders []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Len(t, orders, 1)

	status, body := s.do(t, "GET", "/api/v1/storefront/orders", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
}

func TestAuthAndPrivileges(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, "GET", "/api/v1/sales", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", errorCode(body))

	status, body = s.do(t, "GET", "/api/v1/sales", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "SESSION_EXPIRED", errorCode(body))

	status, body = s.do(t, "GET", "/api/v1/reports/revenue", s.techToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = s.do(t, "GET", "/api/v1/sales", s.techToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, "GET", "/api/v1/sales/not-a-uuid", s.adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", errorCode(body))

	status, body = s.do(t, "GET", "/api/v1/sales/"+s.product.ID.String(), s.adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "SALE_NOT_FOUND", errorCode(body))

	status, body = s.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "admin@store.test", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(body))
}

func TestRecordOfflineSaleAndCustomers(t *testing.T) {
	s := newTestServer(t, 0)

	status, body := s.do(t, "POST", "/api/v1/sales", s.adminToken, fiber.Map{
		"channel":      "Offline",
		"lineItems":    []fiber.Map{{"productId": s.product.ID.String(), "quantity": 1}},
		"customerInfo": fiber.Map{"name": "Kiran", "phone": "9000000000"},
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "Completed", body["data"].(map[string]interface{})["status"])

	req := httptest.NewRequest("GET", "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+s.adminToken)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var customers []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&customers))
	require.Len(t, customers, 1)
	assert.Equal(t, "Kiran", customers[0]["name"])

	status, body = s.do(t, "DELETE", "/api/v1/products/"+s.product.ID.String(), s.adminToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "PRODUCT_IN_USE", errorCode(body))
}

func TestCheckoutRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		status, body := s.do(t, "POST", "/api/v1/storefront/checkout", "", checkout(s.product.ID.String(), 1))
		require.Equal(t, fiber.StatusCreated, status, body)
	}
	status, body := s.do(t, "POST", "/api/v1/storefront/checkout", "", checkout(s.product.ID.String(), 1))
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))
}
