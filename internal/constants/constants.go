package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// 订单支付状态常量
const (
	OrderPaymentStatusUnpaid   = "unpaid"
	OrderPaymentStatusPaid     = "paid"
	OrderPaymentStatusFailed   = "failed"
	OrderPaymentStatusRefunded = "refunded"
)

// 订单行状态常量
const (
	OrderItemStatusPending   = "pending"
	OrderItemStatusShipped   = "shipped"
	OrderItemStatusDelivered = "delivered"
	OrderItemStatusCancelled = "cancelled"
)

// 支付流水状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 佣金状态常量
const (
	CommissionStatusPending   = "pending"
	CommissionStatusApproved  = "approved"
	CommissionStatusPaid      = "paid"
	CommissionStatusCancelled = "cancelled"
)

// 佣金费率来源常量
const (
	RateSourceBrand    = "brand"
	RateSourceVendor   = "vendor"
	RateSourcePlatform = "platform"
)

// 结算单状态常量
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusCancelled  = "cancelled"
)

// 销售报表周期常量
const (
	ReportTypeDaily   = "daily"
	ReportTypeWeekly  = "weekly"
	ReportTypeMonthly = "monthly"
	ReportTypeYearly  = "yearly"
)

// PlatformVendorID 平台汇总报表使用的商家 ID
const PlatformVendorID uint = 0

// 用户类型常量
const (
	UserTypeCustomer = "customer"
	UserTypeVendor   = "vendor"
	UserTypeStaff    = "staff"
	UserTypeAdmin    = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 商家状态常量
const (
	VendorStatusActive    = "active"
	VendorStatusSuspended = "suspended"
)

// 系统操作人标识
const (
	ActorSystemWebhook = "system:webhook"
	ActorSystemTimeout = "system:timeout"
	ActorSystemWorker  = "system:worker"
)

// 领域事件路由键常量
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentSucceeded   = "payment.succeeded"
	EventPaymentFailed      = "payment.failed"
	EventPayoutCreated      = "payout.created"
	EventPayoutCompleted    = "payout.completed"
	EventPayoutFailed       = "payout.failed"
	EventPayoutCancelled    = "payout.cancelled"
)

// 队列常量
const (
	QueueDefault            = "default"
	QueueCritical           = "critical"
	TaskCommissionGenerate  = "commission:generate"
	TaskOrderTimeoutCancel  = "order:timeout_cancel"
	TaskSalesReportGenerate = "report:generate"
)
