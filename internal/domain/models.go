package domain

import "time"

// Price tier names, in the order they are offered in the sale confirm dialog.
const (
	TierSale      = "sale"
	TierWholesale = "wholesale"
	TierSpecial   = "special"
)

type Brand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type BrandCreateRequest struct {
	Name string `json:"name"`
}

type Tax struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RatePercent float64   `json:"rate_percent"`
	CreatedAt   time.Time `json:"created_at"`
}

type TaxCreateRequest struct {
	Name        string  `json:"name"`
	RatePercent float64 `json:"rate_percent"`
}

type Product struct {
	ID                  string `json:"id"`
	Code                string `json:"code"`
	Reference           string `json:"reference"`
	Name                string `json:"name"`
	BrandID             string `json:"brand_id"`
	TaxID               string `json:"tax_id"`
	CostCents           int64  `json:"cost_cents"`
	PriceSaleCents      int64  `json:"price_sale_cents"`
	PriceWholesaleCents int64  `json:"price_wholesale_cents"`
	PriceSpecialCents   int64  `json:"price_special_cents"`
	Active              bool   `json:"active"`
}

type ProductCreateRequest struct {
	Code                string `json:"code"`
	Reference           string `json:"reference"`
	Name                string `json:"name"`
	BrandID             string `json:"brand_id"`
	TaxID               string `json:"tax_id"`
	CostCents           int64  `json:"cost_cents"`
	PriceSaleCents      int64  `json:"price_sale_cents"`
	PriceWholesaleCents int64  `json:"price_wholesale_cents"`
	PriceSpecialCents   int64  `json:"price_special_cents"`
	InitialStock        int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Reference           *string `json:"reference,omitempty"`
	Name                *string `json:"name,omitempty"`
	BrandID             *string `json:"brand_id,omitempty"`
	TaxID               *string `json:"tax_id,omitempty"`
	CostCents           *int64  `json:"cost_cents,omitempty"`
	PriceSaleCents      *int64  `json:"price_sale_cents,omitempty"`
	PriceWholesaleCents *int64  `json:"price_wholesale_cents,omitempty"`
	PriceSpecialCents   *int64  `json:"price_special_cents,omitempty"`
	Active              *bool   `json:"active,omitempty"`
}

type ProductPriceHistory struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	Tier          string    `json:"tier"`
	OldPriceCents int64     `json:"old_price_cents"`
	NewPriceCents int64     `json:"new_price_cents"`
	ChangedBy     string    `json:"changed_by"`
	ChangedAt     time.Time `json:"changed_at"`
}

// ProductSummary is a catalog row: what the sales screen datatable shows and
// what seeds the terminal's stock projection.
type ProductSummary struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Reference      string `json:"reference"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	CostCents      int64  `json:"cost_cents"`
	PriceSaleCents int64  `json:"price_sale_cents"`
	Brand          string `json:"brand"`
}

type PriceTier struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// ProductDetail is the full record behind a catalog row, fetched when the
// confirm dialog opens. Tiers with a zero price are omitted.
type ProductDetail struct {
	Product  Product     `json:"product"`
	Quantity int         `json:"quantity"`
	Brand    Brand       `json:"brand"`
	Tax      Tax         `json:"tax"`
	Tiers    []PriceTier `json:"tiers"`
}

type CatalogPage struct {
	Query      string           `json:"query"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalCount int              `json:"total_count"`
	Items      []ProductSummary `json:"items"`
}

type InvoiceLine struct {
	ProductID      string `json:"product_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
	TaxCents       int64  `json:"tax_cents"`
}

type Invoice struct {
	ID              string        `json:"id"`
	StoreID         string        `json:"store_id"`
	TerminalID      string        `json:"terminal_id"`
	CashierUsername string        `json:"cashier_username"`
	SubtotalCents   int64         `json:"subtotal_cents"`
	TaxCents        int64         `json:"tax_cents"`
	TotalCents      int64         `json:"total_cents"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	Lines           []InvoiceLine `json:"lines"`
}

type InvoiceSubmitLine struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type InvoiceSubmitRequest struct {
	StoreID    string              `json:"store_id"`
	TerminalID string              `json:"terminal_id"`
	Lines      []InvoiceSubmitLine `json:"lines"`
}

type InvoiceResponse struct {
	Invoice Invoice `json:"invoice"`
}

type InvoiceListResponse struct {
	Invoices []Invoice `json:"invoices"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	InvoiceStatusPaid = "paid"
)

// TierList flattens the product's non-zero price tiers in display order. The
// sale tier is always present and always first, so tier index 0 is the
// default price everywhere a tier choice exists.
func (p Product) TierList() []PriceTier {
	tiers := []PriceTier{{Name: TierSale, PriceCents: p.PriceSaleCents}}
	if p.PriceWholesaleCents > 0 {
		tiers = append(tiers, PriceTier{Name: TierWholesale, PriceCents: p.PriceWholesaleCents})
	}
	if p.PriceSpecialCents > 0 {
		tiers = append(tiers, PriceTier{Name: TierSpecial, PriceCents: p.PriceSpecialCents})
	}
	return tiers
}

// Summary projects the product to its catalog-row shape.
func (p Product) Summary(brandName string, quantity int) ProductSummary {
	return ProductSummary{
		ID:             p.ID,
		Code:           p.Code,
		Reference:      p.Reference,
		Name:           p.Name,
		Quantity:       quantity,
		CostCents:      p.CostCents,
		PriceSaleCents: p.PriceSaleCents,
		Brand:          brandName,
	}
}
