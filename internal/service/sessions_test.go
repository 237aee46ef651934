package service

import (
	"errors"
	"testing"
	"time"

	"grosirpos/internal/cache"
	"grosirpos/internal/store"
	"grosirpos/internal/store/memory"
)

func TestOpenTerminalSessionSeedsCatalog(t *testing.T) {
	svc := newTestService()

	view, err := svc.OpenTerminalSession(cashierCtx(), "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if view.SessionID == "" || view.TerminalID != "caja-1" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Level != "datatable" {
		t.Fatalf("expected datatable level, got %s", view.Level)
	}
	if len(view.Catalog.Items) != 8 {
		t.Fatalf("expected seeded catalog, got %d rows", len(view.Catalog.Items))
	}
	if len(view.Lines) != 0 || view.FocusedVisualIndex != -1 {
		t.Fatalf("expected empty invoice, got %+v", view)
	}
}

func TestOpenTerminalSessionRequiresActor(t *testing.T) {
	svc := newTestService()
	if _, err := svc.OpenTerminalSession(t.Context(), "", "caja-1"); err == nil {
		t.Fatalf("expected anonymous open to fail")
	}
}

func TestTerminalSelectRowThroughModalConfirm(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	id := opened.SessionID

	view, err := svc.TerminalSelectRow(ctx, id, "prod-arroz-01")
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if view.Modal == nil || view.Modal.Mode != "add" || view.Level != "modal" {
		t.Fatalf("expected add modal, got %+v", view)
	}
	if len(view.Modal.Tiers) != 3 || view.Modal.Available != 60 {
		t.Fatalf("unexpected modal: %+v", view.Modal)
	}

	tier := 1 // wholesale, 92000
	view, err = svc.TerminalModalConfirm(ctx, id, TerminalModalConfirmRequest{Qty: 3, TierIndex: &tier})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if view.Modal != nil || view.Level != "datatable" {
		t.Fatalf("expected closed modal, got %+v", view)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(view.Lines))
	}
	line := view.Lines[0]
	if line.Qty != 3 || line.UnitPriceCents != 92000 || line.TotalCents != 276000 {
		t.Fatalf("unexpected line: %+v", line)
	}

	// The catalog in the view carries the projection, not server stock.
	for _, item := range view.Catalog.Items {
		if item.ID == "prod-arroz-01" && item.Quantity != 57 {
			t.Fatalf("expected projected 57, got %d", item.Quantity)
		}
	}
}

func TestTerminalKeyFlow(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	id := opened.SessionID

	if _, err := svc.TerminalSelectRow(ctx, id, "prod-pasta-01"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, err := svc.TerminalModalConfirm(ctx, id, TerminalModalConfirmRequest{Qty: 2}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	view, err := svc.TerminalKey(ctx, id, TerminalKeyRequest{Key: "ArrowRight", Ctrl: true})
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	if view.Level != "parent" || view.FocusedVisualIndex != 0 {
		t.Fatalf("expected parent level with top line focused, got %+v", view)
	}

	view, err = svc.TerminalKey(ctx, id, TerminalKeyRequest{Key: "5"})
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	if view.Buffer != "5" || view.Lines[0].Qty != 5 {
		t.Fatalf("expected typed quantity 5, got buffer %q qty %d", view.Buffer, view.Lines[0].Qty)
	}

	view, err = svc.TerminalKey(ctx, id, TerminalKeyRequest{Key: "Enter", Ctrl: true})
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	if view.Level != "search" || !view.FocusSearch {
		t.Fatalf("expected search focus, got %+v", view)
	}
}

func TestTerminalSearchKeepsReservations(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	id := opened.SessionID

	if _, err := svc.TerminalSelectRow(ctx, id, "prod-arroz-01"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, err := svc.TerminalModalConfirm(ctx, id, TerminalModalConfirmRequest{Qty: 4}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	view, err := svc.TerminalSearch(ctx, id, "arroz", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(view.Catalog.Items) != 1 {
		t.Fatalf("expected filtered page, got %d rows", len(view.Catalog.Items))
	}
	// Server still reports 60; the projection reserves the 4 in the invoice.
	if view.Catalog.Items[0].Quantity != 56 {
		t.Fatalf("expected projected 56, got %d", view.Catalog.Items[0].Quantity)
	}
	if len(view.Lines) != 1 || view.Lines[0].Qty != 4 {
		t.Fatalf("invoice must survive the re-fetch, got %+v", view.Lines)
	}
}

func TestTerminalCheckoutSubmitsAndResets(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	id := opened.SessionID

	if _, err := svc.TerminalSelectRow(ctx, id, "prod-atun-01"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, err := svc.TerminalModalConfirm(ctx, id, TerminalModalConfirmRequest{Qty: 2}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	invoice, view, err := svc.TerminalCheckout(ctx, id)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	// 2 x 69000 plus 19% tax.
	if invoice.SubtotalCents != 138000 || invoice.TaxCents != 26220 {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
	if invoice.TerminalID != "caja-1" || invoice.CashierUsername != "cashier" {
		t.Fatalf("unexpected attribution: %+v", invoice)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected cleared invoice, got %+v", view.Lines)
	}
	// Re-fetched page reflects the committed sale.
	for _, item := range view.Catalog.Items {
		if item.ID == "prod-atun-01" && item.Quantity != 58 {
			t.Fatalf("expected server stock 58 after sale, got %d", item.Quantity)
		}
	}
}

func TestTerminalCheckoutEmptyInvoice(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	_, view, err := svc.TerminalCheckout(ctx, opened.SessionID)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(view.Notices) != 1 || view.Notices[0].Severity != "warning" {
		t.Fatalf("expected a warning notice, got %+v", view.Notices)
	}
}

func TestTerminalSessionLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := svc.GetTerminalSession(ctx, opened.SessionID); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := svc.CloseTerminalSession(ctx, opened.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := svc.GetTerminalSession(ctx, opened.SessionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after close, got %v", err)
	}
	if err := svc.CloseTerminalSession(ctx, opened.SessionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected double close to report not found, got %v", err)
	}
}

func TestTerminalSessionIdleEviction(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, cache.NoopCatalogCache{}, "main-store", 10, 15*time.Second, 1) // 1ns idle TTL
	ctx := cashierCtx()

	opened, err := svc.OpenTerminalSession(ctx, "", "caja-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.GetTerminalSession(ctx, opened.SessionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected idle session evicted, got %v", err)
	}
}
