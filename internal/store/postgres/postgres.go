package postgres

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"grosirpos/internal/domain"
	"grosirpos/internal/store"
	"grosirpos/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SearchProducts(ctx context.Context, query string, page int, pageSize int) ([]domain.ProductSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	pattern := "%" + strings.TrimSpace(query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.code, p.reference, p.name,
		       COALESCE(ps.qty, 0), p.cost_cents, p.price_sale_cents,
		       COALESCE(b.name, ''),
		       COUNT(*) OVER ()
		FROM products p
		LEFT JOIN product_stocks ps ON ps.product_id = p.id
		LEFT JOIN brands b ON b.id = p.brand_id
		WHERE p.active = true
		  AND (p.name ILIKE $1 OR p.code ILIKE $1 OR p.reference ILIKE $1)
		ORDER BY p.name, p.id
		LIMIT $2 OFFSET $3
	`, pattern, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	total := 0
	items := make([]domain.ProductSummary, 0, pageSize)
	for rows.Next() {
		var item domain.ProductSummary
		if err := rows.Scan(&item.ID, &item.Code, &item.Reference, &item.Name,
			&item.Quantity, &item.CostCents, &item.PriceSaleCents, &item.Brand, &total); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(items) == 0 {
		// OFFSET past the last row loses the window count; recount.
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM products p
			WHERE p.active = true
			  AND (p.name ILIKE $1 OR p.code ILIKE $1 OR p.reference ILIKE $1)
		`, pattern).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
	}

	return items, total, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, reference, name, COALESCE(brand_id, ''), COALESCE(tax_id, ''),
		       cost_cents, price_sale_cents, price_wholesale_cents, price_special_cents, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Reference, &p.Name, &p.BrandID, &p.TaxID,
		&p.CostCents, &p.PriceSaleCents, &p.PriceWholesaleCents, &p.PriceSpecialCents, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	var detail domain.ProductDetail
	p := &detail.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.code, p.reference, p.name, COALESCE(p.brand_id, ''), COALESCE(p.tax_id, ''),
		       p.cost_cents, p.price_sale_cents, p.price_wholesale_cents, p.price_special_cents, p.active,
		       COALESCE(ps.qty, 0),
		       COALESCE(b.id, ''), COALESCE(b.name, ''),
		       COALESCE(t.id, ''), COALESCE(t.name, ''), COALESCE(t.rate_percent, 0)
		FROM products p
		LEFT JOIN product_stocks ps ON ps.product_id = p.id
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN taxes t ON t.id = p.tax_id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Reference, &p.Name, &p.BrandID, &p.TaxID,
		&p.CostCents, &p.PriceSaleCents, &p.PriceWholesaleCents, &p.PriceSpecialCents, &p.Active,
		&detail.Quantity,
		&detail.Brand.ID, &detail.Brand.Name,
		&detail.Tax.ID, &detail.Tax.Name, &detail.Tax.RatePercent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	detail.Tiers = detail.Product.TierList()
	return &detail, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product, initialStock int) (*domain.Product, error) {
	if product.Code == "" || product.Name == "" || product.PriceSaleCents < 1 || initialStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Active = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (
			id, code, reference, name, brand_id, tax_id, cost_cents,
			price_sale_cents, price_wholesale_cents, price_special_cents,
			active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
	`, product.ID, product.Code, product.Reference, product.Name,
		nullIfEmpty(product.BrandID), nullIfEmpty(product.TaxID), product.CostCents,
		product.PriceSaleCents, product.PriceWholesaleCents, product.PriceSpecialCents, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO product_stocks (product_id, qty, updated_at)
		VALUES ($1,$2,now())
	`, product.ID, initialStock)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceSaleCents < 1 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET reference = $2, name = $3, brand_id = $4, tax_id = $5, cost_cents = $6,
		    price_sale_cents = $7, price_wholesale_cents = $8, price_special_cents = $9,
		    active = $10, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Reference, product.Name,
		nullIfEmpty(product.BrandID), nullIfEmpty(product.TaxID), product.CostCents,
		product.PriceSaleCents, product.PriceWholesaleCents, product.PriceSpecialCents, product.Active)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error {
	if entry.ID == "" {
		entry.ID = xid.New("ph")
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_price_history (id, product_id, tier, old_price_cents, new_price_cents, changed_by, changed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.ProductID, entry.Tier, entry.OldPriceCents, entry.NewPriceCents, entry.ChangedBy, entry.ChangedAt)
	return err
}

func (s *Store) ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.ProductPriceHistory, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, tier, old_price_cents, new_price_cents, changed_by, changed_at
		FROM product_price_history
		WHERE product_id = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.ProductPriceHistory, 0, limit)
	for rows.Next() {
		var entry domain.ProductPriceHistory
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.Tier, &entry.OldPriceCents, &entry.NewPriceCents, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entry.ChangedAt = entry.ChangedAt.UTC()
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) GetStockMap(ctx context.Context, productIDs []string) (map[string]int, error) {
	stockMap := make(map[string]int, len(productIDs))
	if len(productIDs) == 0 {
		return stockMap, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, qty
		FROM product_stocks
		WHERE product_id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		stockMap[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range productIDs {
		if _, ok := stockMap[id]; !ok {
			stockMap[id] = 0
		}
	}

	return stockMap, nil
}

func (s *Store) SetStock(ctx context.Context, productID string, qty int) error {
	if productID == "" || qty < 0 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO product_stocks (product_id, qty, updated_at)
		SELECT $1, $2, now()
		WHERE EXISTS (SELECT 1 FROM products WHERE id = $1)
		ON CONFLICT (product_id)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = now()
	`, productID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	brand.Name = strings.TrimSpace(brand.Name)
	if brand.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if brand.ID == "" {
		brand.ID = xid.New("brand")
	}
	if brand.CreatedAt.IsZero() {
		brand.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brands (id, name, created_at)
		VALUES ($1,$2,$3)
	`, brand.ID, brand.Name, brand.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := brand
	return &created, nil
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM brands
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0, 32)
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = b.CreatedAt.UTC()
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Store) CreateTax(ctx context.Context, tax domain.Tax) (*domain.Tax, error) {
	tax.Name = strings.TrimSpace(tax.Name)
	if tax.Name == "" || tax.RatePercent < 0 || tax.RatePercent > 100 {
		return nil, store.ErrInvalidInput
	}
	if tax.ID == "" {
		tax.ID = xid.New("tax")
	}
	if tax.CreatedAt.IsZero() {
		tax.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO taxes (id, name, rate_percent, created_at)
		VALUES ($1,$2,$3,$4)
	`, tax.ID, tax.Name, tax.RatePercent, tax.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := tax
	return &created, nil
}

func (s *Store) ListTaxes(ctx context.Context) ([]domain.Tax, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, rate_percent, created_at
		FROM taxes
		ORDER BY rate_percent, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	taxes := make([]domain.Tax, 0, 16)
	for rows.Next() {
		var t domain.Tax
		if err := rows.Scan(&t.ID, &t.Name, &t.RatePercent, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		taxes = append(taxes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return taxes, nil
}

// CreateInvoice decrements stock and writes the invoice in one serializable
// transaction. The conditional UPDATE is the authoritative stock check.
func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if len(invoice.Lines) == 0 {
		return nil, store.ErrInvalidInput
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	subtotal := int64(0)
	taxTotal := int64(0)
	recomputed := make([]domain.InvoiceLine, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		if line.Qty < 1 || line.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}

		var code, name string
		var ratePercent float64
		var active bool
		err := tx.QueryRowContext(ctx, `
			SELECT p.code, p.name, p.active, COALESCE(t.rate_percent, 0)
			FROM products p
			LEFT JOIN taxes t ON t.id = p.tax_id
			WHERE p.id = $1
		`, line.ProductID).Scan(&code, &name, &active, &ratePercent)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if !active {
			return nil, store.ErrNotFound
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE product_stocks
			SET qty = qty - $2, updated_at = now()
			WHERE product_id = $1 AND qty >= $2
		`, line.ProductID, line.Qty)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}

		lineTotal := int64(line.Qty) * line.UnitPriceCents
		lineTax := int64(math.Round(float64(lineTotal) * ratePercent / 100))
		recomputed = append(recomputed, domain.InvoiceLine{
			ProductID:      line.ProductID,
			Code:           code,
			Name:           name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			TotalCents:     lineTotal,
			TaxCents:       lineTax,
		})
		subtotal += lineTotal
		taxTotal += lineTax
	}

	invoice.Lines = recomputed
	invoice.SubtotalCents = subtotal
	invoice.TaxCents = taxTotal
	invoice.TotalCents = subtotal + taxTotal

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (
			id, store_id, terminal_id, cashier_username,
			subtotal_cents, tax_cents, total_cents, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, invoice.ID, invoice.StoreID, invoice.TerminalID, invoice.CashierUsername,
		invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents, invoice.Status, invoice.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, line := range invoice.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_lines (
				invoice_id, line_no, product_id, code, name,
				qty, unit_price_cents, total_cents, tax_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, invoice.ID, i+1, line.ProductID, line.Code, line.Name,
			line.Qty, line.UnitPriceCents, line.TotalCents, line.TaxCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, terminal_id, cashier_username,
		       subtotal_cents, tax_cents, total_cents, status, created_at
		FROM invoices
		WHERE id = $1
	`, id).Scan(&invoice.ID, &invoice.StoreID, &invoice.TerminalID, &invoice.CashierUsername,
		&invoice.SubtotalCents, &invoice.TaxCents, &invoice.TotalCents, &invoice.Status, &invoice.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	invoice.CreatedAt = invoice.CreatedAt.UTC()

	lines, err := s.invoiceLines(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Lines = lines
	return &invoice, nil
}

func (s *Store) invoiceLines(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, code, name, qty, unit_price_cents, total_cents, tax_cents
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY line_no
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.InvoiceLine, 0, 16)
	for rows.Next() {
		var line domain.InvoiceLine
		if err := rows.Scan(&line.ProductID, &line.Code, &line.Name, &line.Qty,
			&line.UnitPriceCents, &line.TotalCents, &line.TaxCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *Store) ListInvoices(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Invoice, error) {
	if limit < 1 {
		limit = 50
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, terminal_id, cashier_username,
		       subtotal_cents, tax_cents, total_cents, status, created_at
		FROM invoices
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, limit)
	for rows.Next() {
		var invoice domain.Invoice
		if err := rows.Scan(&invoice.ID, &invoice.StoreID, &invoice.TerminalID, &invoice.CashierUsername,
			&invoice.SubtotalCents, &invoice.TaxCents, &invoice.TotalCents, &invoice.Status, &invoice.CreatedAt); err != nil {
			return nil, err
		}
		invoice.CreatedAt = invoice.CreatedAt.UTC()
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range invoices {
		lines, err := s.invoiceLines(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Lines = lines
	}
	return invoices, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.StoreID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.StoreID, &entry.ActorUsername, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
