package reports

import "time"

// Summary is the owner's profit report over a date range. Voided sales are
// excluded everywhere; expenses count only once approved, by approval time.
type Summary struct {
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	TotalSales    float64            `json:"totalSales"`
	TotalCOGS     float64            `json:"totalCogs"`
	GrossProfit   float64            `json:"grossProfit"`
	TotalExpenses float64            `json:"totalExpenses"`
	NetProfit     float64            `json:"netProfit"`
	SalesCount    int                `json:"salesCount"`
	AvgSaleValue  float64            `json:"avgSaleValue"`
	Payments      []PaymentTotal     `json:"paymentBreakdown"`
	TopProducts   []ProductRevenue   `json:"topProducts"`
	Daily         []DailyPoint       `json:"daily"`
	Expenses      []CategoryExpenses `json:"expensesByCategory"`
}

// PaymentTotal is one payment method's share of revenue.
type PaymentTotal struct {
	Method string  `json:"method"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

// ProductRevenue ranks a product by revenue from sale item snapshots.
type ProductRevenue struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
	Profit    float64 `json:"profit"`
}

// DailyPoint is one day in a sales/profit series.
type DailyPoint struct {
	Date   time.Time `json:"date"`
	Sales  float64   `json:"sales"`
	Profit float64   `json:"profit"`
	Count  int       `json:"count"`
}

// CategoryExpenses totals approved expenses for one category.
type CategoryExpenses struct {
	CategoryID int64   `json:"categoryId"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
}

// Dashboard is the landing view for any authenticated user. Profit and
// expense figures are zeroed for sellers before the response leaves the
// service.
type Dashboard struct {
	TodaySales      float64        `json:"todaySales"`
	TodaySalesCount int            `json:"todaySalesCount"`
	TodayProfit     float64        `json:"todayProfit"`
	SalesChangePct  float64        `json:"salesChangePct"`
	Payments        []PaymentTotal `json:"paymentBreakdown"`
	TodayExpenses   float64        `json:"todayExpenses"`
	PendingExpenses int            `json:"pendingExpenses"`
	LowStock        []LowStockItem `json:"lowStock"`
	RecentSales     []RecentSale   `json:"recentSales"`
	WeekSeries      []DailyPoint   `json:"weekSeries"`
}

// LowStockItem flags a product at or below its reorder level.
type LowStockItem struct {
	ProductID    int64  `json:"productId"`
	Name         string `json:"name"`
	CurrentStock int    `json:"currentStock"`
	ReorderLevel int    `json:"reorderLevel"`
}

// RecentSale is a compact sale row for the dashboard feed.
type RecentSale struct {
	ID            int64     `json:"id"`
	ReceiptNumber string    `json:"receiptNumber"`
	Total         float64   `json:"total"`
	PaymentMethod string    `json:"paymentMethod"`
	SellerName    string    `json:"sellerName"`
	CreatedAt     time.Time `json:"createdAt"`
}
