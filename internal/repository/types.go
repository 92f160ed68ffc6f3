package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	VendorID   uint
	BrandID    uint
	Category   string
	Keyword    string
	MinPrice   string
	MaxPrice   string
	Sort       string // newest / price_asc / price_desc / name
	OnlyActive bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	VendorID      uint // 非 0 时仅返回包含该商家订单项的订单，且只预加载该商家的订单项
	Status        string
	PaymentStatus string
	OrderNo       string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page     int
	PageSize int
	VendorID uint
	OrderID  uint
	PayoutID uint
	Status   string
}

// PayoutListFilter 查询结算单列表的过滤条件
type PayoutListFilter struct {
	Page     int
	PageSize int
	VendorID uint
	Status   string
}

// SalesReportFilter 查询销售报表的过滤条件
type SalesReportFilter struct {
	Page       int
	PageSize   int
	ReportType string
	VendorID   *uint
	DateFrom   *time.Time
	DateTo     *time.Time
}

// VendorListFilter 查询商家列表的过滤条件
type VendorListFilter struct {
	Page     int
	PageSize int
	Status   string
	Keyword  string
}
