package domain

import (
	"time"
)

// OrderStatus is the lifecycle state of a sales order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDENTE"
	OrderStatusCompleted OrderStatus = "CONCLUÍDO"
	OrderStatusCancelled OrderStatus = "CANCELADO"
	OrderStatusDraft     OrderStatus = "RASCUNHO"
)

// ClientType distinguishes individual (PF) from corporate (PJ) clients.
type ClientType string

const (
	ClientTypePF ClientType = "PF"
	ClientTypePJ ClientType = "PJ"
)

// Client represents a customer of the tenant.
type Client struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id,omitempty"`
	Name        string     `json:"name"`
	CnpjCpf     string     `json:"cnpj_cpf"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	CreditLimit float64    `json:"credit_limit"`
	TotalSpent  float64    `json:"total_spent"`
	Type        ClientType `json:"type"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
}

// Product represents a sellable item in the tenant's catalog.
type Product struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id,omitempty"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	MinStock  int       `json:"min_stock"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID         string  `json:"id,omitempty"`
	OrderID    string  `json:"order_id,omitempty"`
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Discount   float64 `json:"discount"`
	TotalPrice float64 `json:"total_price"`
}

// Order represents a sales order with its human-readable code.
type Order struct {
	ID            string      `json:"id"`
	Code          string      `json:"code"`
	CompanyID     string      `json:"company_id,omitempty"`
	ClientID      string      `json:"client_id,omitempty"`
	TotalAmount   float64     `json:"total_amount"`
	DiscountTotal float64     `json:"discount_total"`
	Subtotal      float64     `json:"subtotal"`
	Status        OrderStatus `json:"status"`
	Salesperson   string      `json:"salesperson"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at,omitempty"`
	Items         []OrderItem `json:"order_items,omitempty"`
}

// TransactionType distinguishes income from expense entries.
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

// Transaction is a finance ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id,omitempty"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Status      string          `json:"status"` // PAID or PENDING
	Date        time.Time       `json:"date"`
}

// CommercialSettings holds per-tenant sales policy knobs.
type CommercialSettings struct {
	ID                    string   `json:"id,omitempty"`
	CompanyID             string   `json:"company_id,omitempty"`
	MinimumOrderValue     float64  `json:"minimum_order_value"`
	AutoApproveOrders     bool     `json:"auto_approve_orders"`
	AllowNegativeStock    bool     `json:"allow_negative_stock"`
	LowStockThreshold     int      `json:"low_stock_threshold"`
	MaxDiscountPercent    float64  `json:"max_discount_percent"`
	DefaultPaymentMethod  string   `json:"default_payment_method"`
	AllowedPaymentMethods []string `json:"allowed_payment_methods"`
	OrderCodePrefix       string   `json:"order_code_prefix"`
	OrderCodePadding      int      `json:"order_code_padding"`
	EnableCreditLimit     bool     `json:"enable_credit_limit"`
	DefaultCreditLimit    float64  `json:"default_credit_limit"`
}

// CompanySettings holds the tenant's registration and contact data.
type CompanySettings struct {
	ID                string `json:"id,omitempty"`
	CompanyID         string `json:"company_id,omitempty"`
	TradeName         string `json:"trade_name"`
	LegalName         string `json:"legal_name"`
	Document          string `json:"document"`
	StateRegistration string `json:"state_registration"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Whatsapp          string `json:"whatsapp"`
	City              string `json:"city"`
	State             string `json:"state"`
	Country           string `json:"country"`
	Currency          string `json:"currency"`
	Timezone          string `json:"timezone"`
	LogoURL           string `json:"logo_url"`
}

// DashboardStats aggregates the numbers shown on the dashboard landing page.
type DashboardStats struct {
	DailySales      float64 `json:"daily_sales"`
	MonthlyRevenue  float64 `json:"monthly_revenue"`
	OutOfStockItems int     `json:"out_of_stock_items"`
	PendingOrders   int     `json:"pending_orders"`
}
