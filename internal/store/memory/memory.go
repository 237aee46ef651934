package memory

import (
	"context"
	"log"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"grosirpos/internal/domain"
	"grosirpos/internal/store"
	"grosirpos/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	stock            map[string]int
	brandsByID       map[string]domain.Brand
	taxesByID        map[string]domain.Tax
	priceHistoryByID map[string][]domain.ProductPriceHistory
	invoicesByID     map[string]*domain.Invoice
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	brands := []domain.Brand{
		{ID: "brand-diana", Name: "Diana", CreatedAt: now},
		{ID: "brand-premier", Name: "Premier", CreatedAt: now},
		{ID: "brand-manuelita", Name: "Manuelita", CreatedAt: now},
		{ID: "brand-colanta", Name: "Colanta", CreatedAt: now},
		{ID: "brand-zenu", Name: "Zenu", CreatedAt: now},
	}
	taxes := []domain.Tax{
		{ID: "tax-exempt", Name: "Exento", RatePercent: 0, CreatedAt: now},
		{ID: "tax-iva-5", Name: "IVA 5%", RatePercent: 5, CreatedAt: now},
		{ID: "tax-iva-19", Name: "IVA 19%", RatePercent: 19, CreatedAt: now},
	}
	products := []domain.Product{
		{ID: "prod-arroz-01", Code: "7701001", Reference: "ARZ-5KG", Name: "Arroz Premium 5kg", BrandID: "brand-diana", TaxID: "tax-exempt", CostCents: 82000, PriceSaleCents: 100000, PriceWholesaleCents: 92000, PriceSpecialCents: 88000, Active: true},
		{ID: "prod-aceite-01", Code: "7701002", Reference: "ACE-3L", Name: "Aceite Girasol 3L", BrandID: "brand-premier", TaxID: "tax-iva-5", CostCents: 210000, PriceSaleCents: 250000, PriceWholesaleCents: 236000, Active: true},
		{ID: "prod-azucar-01", Code: "7701003", Reference: "AZU-25", Name: "Azucar Blanca 2.5kg", BrandID: "brand-manuelita", TaxID: "tax-exempt", CostCents: 64000, PriceSaleCents: 80000, PriceWholesaleCents: 74000, Active: true},
		{ID: "prod-leche-01", Code: "7701004", Reference: "LEC-1L", Name: "Leche Entera 1L", BrandID: "brand-colanta", TaxID: "tax-exempt", CostCents: 32000, PriceSaleCents: 41000, Active: true},
		{ID: "prod-atun-01", Code: "7701005", Reference: "ATN-LOMO", Name: "Atun en Lomitos 170g", BrandID: "brand-zenu", TaxID: "tax-iva-19", CostCents: 52000, PriceSaleCents: 69000, PriceWholesaleCents: 63000, PriceSpecialCents: 60000, Active: true},
		{ID: "prod-salchicha-01", Code: "7701006", Reference: "SAL-450", Name: "Salchicha Premium 450g", BrandID: "brand-zenu", TaxID: "tax-iva-19", CostCents: 98000, PriceSaleCents: 125000, PriceWholesaleCents: 117000, Active: true},
		{ID: "prod-queso-01", Code: "7701007", Reference: "QUE-500", Name: "Queso Campesino 500g", BrandID: "brand-colanta", TaxID: "tax-iva-5", CostCents: 112000, PriceSaleCents: 139000, Active: true},
		{ID: "prod-pasta-01", Code: "7701008", Reference: "PAS-1KG", Name: "Pasta Espagueti 1kg", BrandID: "brand-diana", TaxID: "tax-exempt", CostCents: 45000, PriceSaleCents: 58000, PriceWholesaleCents: 53000, Active: true},
	}

	productMap := make(map[string]domain.Product, len(products))
	stock := make(map[string]int, len(products))
	for _, p := range products {
		productMap[p.ID] = p
		stock[p.ID] = 60
	}
	// One out-of-stock row so the sold-out path is visible in dev mode.
	stock["prod-queso-01"] = 0

	brandMap := make(map[string]domain.Brand, len(brands))
	for _, b := range brands {
		brandMap[b.ID] = b
	}
	taxMap := make(map[string]domain.Tax, len(taxes))
	for _, t := range taxes {
		taxMap[t.ID] = t
	}

	return &Store{
		products:         productMap,
		stock:            stock,
		brandsByID:       brandMap,
		taxesByID:        taxMap,
		priceHistoryByID: make(map[string][]domain.ProductPriceHistory),
		invoicesByID:     make(map[string]*domain.Invoice),
		auditLogs:        make([]domain.AuditLog, 0, 128),
		usersByUsername:  seedUsers(),
	}
}

func (s *Store) SearchProducts(_ context.Context, query string, page int, pageSize int) ([]domain.ProductSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	matched := make([]domain.ProductSummary, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if needle != "" && !matchesProduct(p, needle) {
			continue
		}
		matched = append(matched, p.Summary(s.brandsByID[p.BrandID].Name, s.stock[p.ID]))
	}

	slices.SortFunc(matched, func(a, b domain.ProductSummary) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []domain.ProductSummary{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesProduct(p domain.Product, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Code), needle) ||
		strings.Contains(strings.ToLower(p.Reference), needle)
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductDetail(_ context.Context, id string) (*domain.ProductDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	detail := domain.ProductDetail{
		Product:  product,
		Quantity: s.stock[id],
		Brand:    s.brandsByID[product.BrandID],
		Tax:      s.taxesByID[product.TaxID],
		Tiers:    product.TierList(),
	}
	return &detail, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, initialStock int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Code == "" || product.Name == "" || product.PriceSaleCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if initialStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.BrandID != "" {
		if _, ok := s.brandsByID[product.BrandID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	if product.TaxID != "" {
		if _, ok := s.taxesByID[product.TaxID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	for _, existing := range s.products {
		if existing.Code == product.Code {
			return nil, store.ErrInvalidInput
		}
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Active = true
	s.products[product.ID] = product
	s.stock[product.ID] = initialStock
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.PriceSaleCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	if product.BrandID != "" {
		if _, ok := s.brandsByID[product.BrandID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	if product.TaxID != "" {
		if _, ok := s.taxesByID[product.TaxID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreatePriceHistory(_ context.Context, entry domain.ProductPriceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	s.priceHistoryByID[entry.ProductID] = append(s.priceHistoryByID[entry.ProductID], entry)
	return nil
}

func (s *Store) ListPriceHistory(_ context.Context, productID string, limit int) ([]domain.ProductPriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.priceHistoryByID[productID]
	if len(history) == 0 {
		return []domain.ProductPriceHistory{}, nil
	}

	result := make([]domain.ProductPriceHistory, len(history))
	copy(result, history)
	slices.SortFunc(result, func(a, b domain.ProductPriceHistory) int {
		if a.ChangedAt.Equal(b.ChangedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.ChangedAt.After(b.ChangedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetStockMap(_ context.Context, productIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockMap := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		stockMap[id] = s.stock[id]
	}
	return stockMap, nil
}

func (s *Store) SetStock(_ context.Context, productID string, qty int) error {
	if productID == "" || qty < 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[productID]; !exists {
		return store.ErrNotFound
	}
	s.stock[productID] = qty
	return nil
}

func (s *Store) CreateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	brand.Name = strings.TrimSpace(brand.Name)
	if brand.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.brandsByID {
		if strings.EqualFold(existing.Name, brand.Name) {
			return nil, store.ErrInvalidInput
		}
	}
	if brand.ID == "" {
		brand.ID = xid.New("brand")
	}
	if brand.CreatedAt.IsZero() {
		brand.CreatedAt = time.Now().UTC()
	}

	s.brandsByID[brand.ID] = brand
	copyBrand := brand
	return &copyBrand, nil
}

func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := make([]domain.Brand, 0, len(s.brandsByID))
	for _, brand := range s.brandsByID {
		brands = append(brands, brand)
	}
	slices.SortFunc(brands, func(a, b domain.Brand) int {
		return cmpString(a.Name, b.Name)
	})
	return brands, nil
}

func (s *Store) CreateTax(_ context.Context, tax domain.Tax) (*domain.Tax, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tax.Name = strings.TrimSpace(tax.Name)
	if tax.Name == "" || tax.RatePercent < 0 || tax.RatePercent > 100 {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.taxesByID {
		if strings.EqualFold(existing.Name, tax.Name) {
			return nil, store.ErrInvalidInput
		}
	}
	if tax.ID == "" {
		tax.ID = xid.New("tax")
	}
	if tax.CreatedAt.IsZero() {
		tax.CreatedAt = time.Now().UTC()
	}

	s.taxesByID[tax.ID] = tax
	copyTax := tax
	return &copyTax, nil
}

func (s *Store) ListTaxes(_ context.Context) ([]domain.Tax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	taxes := make([]domain.Tax, 0, len(s.taxesByID))
	for _, tax := range s.taxesByID {
		taxes = append(taxes, tax)
	}
	slices.SortFunc(taxes, func(a, b domain.Tax) int {
		if a.RatePercent == b.RatePercent {
			return cmpString(a.Name, b.Name)
		}
		if a.RatePercent < b.RatePercent {
			return -1
		}
		return 1
	})
	return taxes, nil
}

// CreateInvoice performs the authoritative stock check and decrement in one
// critical section: the terminal's optimistic projection never substitutes
// for this check.
func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(invoice.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	subtotal := int64(0)
	taxTotal := int64(0)
	recomputed := make([]domain.InvoiceLine, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		if line.Qty < 1 || line.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.products[line.ProductID]
		if !exists || !product.Active {
			return nil, store.ErrNotFound
		}
		if s.stock[line.ProductID]-line.Qty < 0 {
			return nil, store.ErrInsufficientStock
		}
		lineTotal := int64(line.Qty) * line.UnitPriceCents
		rate := s.taxesByID[product.TaxID].RatePercent
		lineTax := int64(math.Round(float64(lineTotal) * rate / 100))
		recomputed = append(recomputed, domain.InvoiceLine{
			ProductID:      line.ProductID,
			Code:           product.Code,
			Name:           product.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			TotalCents:     lineTotal,
			TaxCents:       lineTax,
		})
		subtotal += lineTotal
		taxTotal += lineTax
	}

	for _, line := range recomputed {
		s.stock[line.ProductID] -= line.Qty
	}

	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	if invoice.Status == "" {
		invoice.Status = domain.InvoiceStatusPaid
	}
	invoice.Lines = recomputed
	invoice.SubtotalCents = subtotal
	invoice.TaxCents = taxTotal
	invoice.TotalCents = subtotal + taxTotal

	saved := cloneInvoice(&invoice)
	s.invoicesByID[invoice.ID] = saved
	return cloneInvoice(saved), nil
}

func (s *Store) GetInvoiceByID(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, exists := s.invoicesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneInvoice(invoice), nil
}

func (s *Store) ListInvoices(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Invoice, 0, 64)
	for _, invoice := range s.invoicesByID {
		if !from.IsZero() && invoice.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !invoice.CreatedAt.Before(to) {
			continue
		}
		result = append(result, *cloneInvoice(invoice))
	}
	slices.SortFunc(result, func(a, b domain.Invoice) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneInvoice(src *domain.Invoice) *domain.Invoice {
	if src == nil {
		return nil
	}
	dup := *src
	lines := make([]domain.InvoiceLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return &dup
}
