package model

// All lists every table for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&Privilege{}, &Role{}, &User{},
		&Product{}, &OfflineCustomer{}, &Sale{}, &SaleLineItem{},
		&StockMovement{}, &SerialOverride{},
	}
}
