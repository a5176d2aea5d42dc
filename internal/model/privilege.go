package model

// Privilege is a permission code granted through a role or directly to a user.
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g. "sale:allocate"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivUserView      = "user:view"
	PrivUserManage    = "user:manage"
	PrivProductView   = "product:view"
	PrivProductManage = "product:manage"
	PrivProductDelete = "product:delete"
	PrivStockRestock  = "stock:restock"
	PrivSaleView      = "sale:view"
	PrivSaleCreate    = "sale:create"
	PrivSaleStatus    = "sale:status"
	PrivSaleAllocate  = "sale:allocate"
	PrivSaleOverride  = "sale:override"
	PrivSaleDelete    = "sale:delete"
	PrivCustomerView  = "customer:view"
	PrivReportView    = "report:view"
)

var DefaultPrivileges = []Privilege{
	{Code: PrivUserView, Name: "View Staff"},
	{Code: PrivUserManage, Name: "Manage Staff"},
	{Code: PrivProductView, Name: "View Inventory"},
	{Code: PrivProductManage, Name: "Create/Edit Products"},
	{Code: PrivProductDelete, Name: "Delete Products"},
	{Code: PrivStockRestock, Name: "Restock Inventory"},
	{Code: PrivSaleView, Name: "View Sales"},
	{Code: PrivSaleCreate, Name: "Record Offline Sales"},
	{Code: PrivSaleStatus, Name: "Update Order Status"},
	{Code: PrivSaleAllocate, Name: "Allocate Serials and Ship"},
	{Code: PrivSaleOverride, Name: "Override Shipped Serials"},
	{Code: PrivSaleDelete, Name: "Delete Sales"},
	{Code: PrivCustomerView, Name: "View Customers"},
	{Code: PrivReportView, Name: "View Reports"},
}
