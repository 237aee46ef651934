package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"grosirpos/internal/cache"
	"grosirpos/internal/domain"
	"grosirpos/internal/store"
	"grosirpos/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	catalogCache   cache.CatalogCache
	defaultStoreID string
	pageSize       int
	catalogTTL     time.Duration

	sessions *sessionTable
}

func New(repo store.Repository, catalogCache cache.CatalogCache, defaultStoreID string, pageSize int, catalogTTL time.Duration, sessionTTL time.Duration) *Service {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	if catalogCache == nil {
		catalogCache = cache.NoopCatalogCache{}
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if catalogTTL < 1 {
		catalogTTL = 15 * time.Second
	}
	if sessionTTL < 1 {
		sessionTTL = 30 * time.Minute
	}

	return &Service{
		repo:           repo,
		catalogCache:   catalogCache,
		defaultStoreID: defaultStoreID,
		pageSize:       pageSize,
		catalogTTL:     catalogTTL,
		sessions:       newSessionTable(sessionTTL),
	}
}

// SearchCatalog serves the sales-screen datatable: a paginated, filtered
// page of catalog rows with their server-side quantities. Pages are cached
// briefly; a short TTL is enough because terminals keep their own stock
// projection between fetches.
func (s *Service) SearchCatalog(ctx context.Context, query string, page int) (domain.CatalogPage, error) {
	query = strings.TrimSpace(query)
	if page < 1 {
		page = 1
	}

	key := fmt.Sprintf("%s|%d|%d", strings.ToLower(query), page, s.pageSize)
	if cached, ok, err := s.catalogCache.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: catalog cache get failed: %v", err)
	} else if ok {
		return *cached, nil
	}

	items, total, err := s.repo.SearchProducts(ctx, query, page, s.pageSize)
	if err != nil {
		return domain.CatalogPage{}, err
	}

	result := domain.CatalogPage{
		Query:      query,
		Page:       page,
		PageSize:   s.pageSize,
		TotalCount: total,
		Items:      items,
	}
	if err := s.catalogCache.Set(ctx, key, &result, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: catalog cache set failed: %v", err)
	}
	return result, nil
}

func (s *Service) GetProductDetail(ctx context.Context, productID string) (domain.ProductDetail, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.ProductDetail{}, store.ErrInvalidInput
	}
	detail, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return domain.ProductDetail{}, err
	}
	return *detail, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Reference = strings.ToUpper(strings.TrimSpace(req.Reference))
	req.Name = strings.TrimSpace(req.Name)

	if req.Code == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.PriceSaleCents < 1 || req.PriceWholesaleCents < 0 || req.PriceSpecialCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.CostCents < 0 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		Code:                req.Code,
		Reference:           req.Reference,
		Name:                req.Name,
		BrandID:             strings.TrimSpace(req.BrandID),
		TaxID:               strings.TrimSpace(req.TaxID),
		CostCents:           req.CostCents,
		PriceSaleCents:      req.PriceSaleCents,
		PriceWholesaleCents: req.PriceWholesaleCents,
		PriceSpecialCents:   req.PriceSpecialCents,
		Active:              true,
	}

	created, err := s.repo.CreateProduct(ctx, product, req.InitialStock)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("code=%s,name=%s,price=%d,stock=%d", created.Code, created.Name, created.PriceSaleCents, req.InitialStock))

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Reference != nil {
		updated.Reference = strings.ToUpper(strings.TrimSpace(*req.Reference))
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.BrandID != nil {
		updated.BrandID = strings.TrimSpace(*req.BrandID)
	}
	if req.TaxID != nil {
		updated.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.CostCents = *req.CostCents
	}
	if req.PriceSaleCents != nil {
		if *req.PriceSaleCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceSaleCents = *req.PriceSaleCents
	}
	if req.PriceWholesaleCents != nil {
		if *req.PriceWholesaleCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceWholesaleCents = *req.PriceWholesaleCents
	}
	if req.PriceSpecialCents != nil {
		if *req.PriceSpecialCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceSpecialCents = *req.PriceSpecialCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.recordPriceChanges(ctx, *existing, *saved, actor.Username)
	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,sale=%d,wholesale=%d,special=%d", saved.Active, saved.PriceSaleCents, saved.PriceWholesaleCents, saved.PriceSpecialCents))

	return *saved, nil
}

// recordPriceChanges writes one history entry per tier whose price moved.
func (s *Service) recordPriceChanges(ctx context.Context, before domain.Product, after domain.Product, changedBy string) {
	changes := []struct {
		tier string
		old  int64
		new  int64
	}{
		{domain.TierSale, before.PriceSaleCents, after.PriceSaleCents},
		{domain.TierWholesale, before.PriceWholesaleCents, after.PriceWholesaleCents},
		{domain.TierSpecial, before.PriceSpecialCents, after.PriceSpecialCents},
	}
	for _, c := range changes {
		if c.old == c.new {
			continue
		}
		if err := s.repo.CreatePriceHistory(ctx, domain.ProductPriceHistory{
			ID:            xid.New("ph"),
			ProductID:     after.ID,
			Tier:          c.tier,
			OldPriceCents: c.old,
			NewPriceCents: c.new,
			ChangedBy:     changedBy,
			ChangedAt:     time.Now().UTC(),
		}); err != nil {
			log.Printf("[service] WARN: failed to record price history product=%s tier=%s: %v", after.ID, c.tier, err)
		}
	}
}

func (s *Service) ListProductPriceHistory(ctx context.Context, productID string, limit int) ([]domain.ProductPriceHistory, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, store.ErrInvalidInput
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListPriceHistory(ctx, productID, limit)
}

func (s *Service) SetStock(ctx context.Context, productID string, qty int) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" || qty < 0 {
		return store.ErrInvalidInput
	}

	if err := s.repo.SetStock(ctx, productID, qty); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "stock_set", "product", productID, fmt.Sprintf("qty=%d", qty))
	return nil
}

func (s *Service) CreateBrand(ctx context.Context, req domain.BrandCreateRequest) (domain.Brand, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Brand{}, fmt.Errorf("admin role required")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Brand{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateBrand(ctx, domain.Brand{Name: req.Name})
	if err != nil {
		return domain.Brand{}, err
	}
	s.logAudit(ctx, "brand_create", "brand", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateTax(ctx context.Context, req domain.TaxCreateRequest) (domain.Tax, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Tax{}, fmt.Errorf("admin role required")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.RatePercent < 0 || req.RatePercent > 100 {
		return domain.Tax{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateTax(ctx, domain.Tax{Name: req.Name, RatePercent: req.RatePercent})
	if err != nil {
		return domain.Tax{}, err
	}
	s.logAudit(ctx, "tax_create", "tax", created.ID, fmt.Sprintf("name=%s,rate=%.2f", created.Name, created.RatePercent))
	return *created, nil
}

func (s *Service) ListTaxes(ctx context.Context) ([]domain.Tax, error) {
	return s.repo.ListTaxes(ctx)
}

// SubmitInvoice persists a sale. The store performs the authoritative stock
// check; the terminal's optimistic projection only shapes what the cashier
// could type, it proves nothing here.
func (s *Service) SubmitInvoice(ctx context.Context, req domain.InvoiceSubmitRequest) (domain.Invoice, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Invoice{}, fmt.Errorf("authenticated actor required")
	}

	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	req.TerminalID = strings.TrimSpace(req.TerminalID)
	if req.TerminalID == "" {
		req.TerminalID = "terminal-1"
	}
	if len(req.Lines) == 0 {
		return domain.Invoice{}, store.ErrInvalidInput
	}

	lines := make([]domain.InvoiceLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if strings.TrimSpace(line.ProductID) == "" || line.Qty < 1 || line.UnitPriceCents < 0 {
			return domain.Invoice{}, store.ErrInvalidInput
		}
		lines = append(lines, domain.InvoiceLine{
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	created, err := s.repo.CreateInvoice(ctx, domain.Invoice{
		StoreID:         req.StoreID,
		TerminalID:      req.TerminalID,
		CashierUsername: actor.Username,
		Lines:           lines,
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "invoice_create", "invoice", created.ID, fmt.Sprintf("terminal=%s,lines=%d,total=%d", created.TerminalID, len(created.Lines), created.TotalCents))
	return *created, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invoice{}, store.ErrInvalidInput
	}
	invoice, err := s.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) ListInvoices(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Invoice, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListInvoices(ctx, from, to, limit)
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CashierUser{}, fmt.Errorf("admin role required")
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	password := strings.TrimSpace(req.Password)
	if len(username) < 3 || len(password) < 8 {
		return domain.CashierUser{}, store.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	now := time.Now().UTC()
	if err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      "cashier",
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return domain.CashierUser{}, err
	}

	s.logAudit(ctx, "cashier_create", "user", username, "role=cashier")
	return domain.CashierUser{Username: username, Role: "cashier", Active: true, CreatedAt: now}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.CashierUser, 0, len(users))
	for _, user := range users {
		result = append(result, domain.CashierUser{
			Username:  user.Username,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt,
		})
	}
	return result, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalogCache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache invalidate failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       s.defaultStoreID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
