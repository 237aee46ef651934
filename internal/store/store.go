package store

import (
	"context"
	"errors"
	"time"

	"grosirpos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

type Repository interface {
	SearchProducts(ctx context.Context, query string, page int, pageSize int) ([]domain.ProductSummary, int, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductDetail(ctx context.Context, id string) (*domain.ProductDetail, error)
	CreateProduct(ctx context.Context, product domain.Product, initialStock int) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	CreatePriceHistory(ctx context.Context, entry domain.ProductPriceHistory) error
	ListPriceHistory(ctx context.Context, productID string, limit int) ([]domain.ProductPriceHistory, error)
	GetStockMap(ctx context.Context, productIDs []string) (map[string]int, error)
	SetStock(ctx context.Context, productID string, qty int) error
	CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	CreateTax(ctx context.Context, tax domain.Tax) (*domain.Tax, error)
	ListTaxes(ctx context.Context) ([]domain.Tax, error)
	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Invoice, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
