package handler

import (
	"time"

	"refurb-store-api/internal/middleware"
	"refurb-store-api/internal/model"
	"refurb-store-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth        service.AuthService
	Users       service.UserService
	Products    service.ProductService
	Sales       service.SaleService
	Allocations service.AllocationService
	Customers   service.CustomerService
	Reports     service.ReportService
}

type RouteOptions struct {
	// CheckoutPerMin caps storefront checkouts per client IP. Zero disables the limit.
	CheckoutPerMin int
	// Location is the display time zone date filters are read in.
	Location *time.Location
}

// Register mounts the /api/v1 routes on app.
func Register(app *fiber.App, svc Services, opts RouteOptions) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	roleHandler := NewRoleHandler(svc.Users)
	productHandler := NewProductHandler(svc.Products)
	saleHandler := NewSaleHandler(svc.Sales, svc.Allocations, opts.Location)
	storeHandler := NewStorefrontHandler(svc.Products, svc.Sales)
	customerHandler := NewCustomerHandler(svc.Customers)
	reportHandler := NewReportHandler(svc.Reports)

	api := app.Group("/api/v1")
	requireAuth := middleware.RequireAuth(svc.Auth)
	can := middleware.RequirePrivilege

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", requireAuth, authHandler.Heartbeat)

	store := api.Group("/storefront")
	store.Get("/products", storeHandler.Products)
	store.Get("/orders", storeHandler.TrackOrders)
	checkout := []fiber.Handler{}
	if opts.CheckoutPerMin > 0 {
		checkout = append(checkout, limiter.New(limiter.Config{
			Max:        opts.CheckoutPerMin,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(errorJSON("RATE_LIMITED", "too many checkout attempts, try again shortly"))
			},
		}))
	}
	checkout = append(checkout, storeHandler.Checkout)
	store.Post("/checkout", checkout...)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/dashboard/stats", can(model.PrivReportView), reportHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", can(model.PrivReportView), reportHandler.GetStockMovement)
	protected.Get("/reports/revenue", can(model.PrivReportView), reportHandler.GetRevenue)

	protected.Get("/products", can(model.PrivProductView), productHandler.GetProducts)
	protected.Get("/products/:id", can(model.PrivProductView), productHandler.GetProduct)
	protected.Post("/products", can(model.PrivProductManage), productHandler.CreateProduct)
	protected.Put("/products/:id", can(model.PrivProductManage), productHandler.UpdateProduct)
	protected.Post("/products/:id/restock", can(model.PrivStockRestock), productHandler.Restock)
	protected.Delete("/products/:id", can(model.PrivProductDelete), productHandler.DeleteProduct)

	protected.Post("/sales", can(model.PrivSaleCreate), saleHandler.RecordSale)
	protected.Get("/sales", can(model.PrivSaleView), saleHandler.ListSales)
	protected.Get("/sales/:id", can(model.PrivSaleView), saleHandler.GetSale)
	protected.Patch("/sales/:id/serials", can(model.PrivSaleAllocate), saleHandler.AllocateSerials)
	protected.Put("/sales/:id/serials/:itemId", can(model.PrivSaleOverride), saleHandler.OverrideSerials)
	protected.Patch("/sales/:id/status", can(model.PrivSaleStatus), saleHandler.UpdateStatus)
	protected.Delete("/sales/:id", can(model.PrivSaleDelete), saleHandler.DeleteSale)

	protected.Get("/customers", can(model.PrivCustomerView), customerHandler.GetCustomers)
	protected.Get("/customers/:id", can(model.PrivCustomerView), customerHandler.GetCustomer)

	protected.Get("/users", can(model.PrivUserView), userHandler.GetUsers)
	protected.Get("/users/:id", can(model.PrivUserView), userHandler.GetUser)
	protected.Post("/users", can(model.PrivUserManage), userHandler.CreateUser)
	protected.Put("/users/:id", can(model.PrivUserManage), userHandler.UpdateUser)
	protected.Delete("/users/:id", can(model.PrivUserManage), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", can(model.PrivUserManage), userHandler.UpdateUserPrivileges)
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", roleHandler.GetPrivileges)
}
