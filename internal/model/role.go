package model

// Role groups the privileges handed to new staff accounts.
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RoleAdmin       = "ADMIN"
	RoleTechnician  = "TECHNICIAN"
)

var DefaultRoles = []Role{
	{Code: RoleMasterAdmin, Name: "Master Administrator", Description: "Full system access"},
	{Code: RoleAdmin, Name: "Administrator", Description: "Inventory, sales and reports"},
	{Code: RoleTechnician, Name: "Technician", Description: "Serial allocation and shipping"},
}

// DefaultRolePrivileges maps each non-master role to its privilege codes.
// MASTER_ADMIN always receives every privilege.
var DefaultRolePrivileges = map[string][]string{
	RoleAdmin: {
		PrivUserView, PrivProductView, PrivProductManage, PrivStockRestock,
		PrivSaleView, PrivSaleCreate, PrivSaleStatus, PrivSaleAllocate,
		PrivCustomerView, PrivReportView,
	},
	RoleTechnician: {
		PrivProductView, PrivSaleView, PrivSaleAllocate, PrivSaleStatus,
	},
}
