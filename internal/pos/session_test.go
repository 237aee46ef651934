package pos

import (
	"testing"

	"grosirpos/internal/domain"
)

func seedItems() []domain.ProductSummary {
	return []domain.ProductSummary{
		{ID: "prod-1", Code: "7701001", Name: "Arroz Premium 5kg", Quantity: 10, PriceSaleCents: 100000, Brand: "Diana"},
		{ID: "prod-2", Code: "7701002", Name: "Aceite Girasol 3L", Quantity: 4, PriceSaleCents: 250000, Brand: "Premier"},
		{ID: "prod-3", Code: "7701003", Name: "Azucar Blanca 2.5kg", Quantity: 0, PriceSaleCents: 80000, Brand: "Manuelita"},
	}
}

func newSeededSession() *Session {
	s := NewSession()
	s.SeedCatalog(seedItems())
	return s
}

// checkConservation verifies that for every product the projected stock plus
// the quantity in the invoice equals the originally fetched quantity.
func checkConservation(t *testing.T, s *Session, original []domain.ProductSummary) {
	t.Helper()
	for _, item := range original {
		inInvoice := 0
		for _, line := range s.Lines() {
			if line.Product.ID == item.ID {
				inInvoice += line.Qty
			}
		}
		available, _ := s.Available(item.ID)
		if available+inInvoice != item.Quantity {
			t.Fatalf("conservation broken for %s: bank=%d invoice=%d original=%d",
				item.ID, available, inInvoice, item.Quantity)
		}
	}
}

func checkTotals(t *testing.T, s *Session) {
	t.Helper()
	for _, line := range s.Lines() {
		if line.TotalCents != int64(line.Qty)*line.UnitPriceCents {
			t.Fatalf("total mismatch for %s: qty=%d unit=%d total=%d",
				line.Product.ID, line.Qty, line.UnitPriceCents, line.TotalCents)
		}
	}
}

func TestNewSessionStartsAtDatatable(t *testing.T) {
	s := NewSession()
	if s.Level() != FocusDatatable {
		t.Fatalf("expected datatable level on mount, got %s", s.Level())
	}
	if s.FocusedIndex() != -1 {
		t.Fatalf("expected no focused line, got %d", s.FocusedIndex())
	}
}

func TestApplyDeltaCreatesLine(t *testing.T) {
	s := newSeededSession()

	if res := s.ApplyQuantityDelta("prod-1", 3, nil); res != DeltaCreated {
		t.Fatalf("expected DeltaCreated, got %v", res)
	}

	lines := s.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Qty != 3 || lines[0].UnitPriceCents != 100000 || lines[0].TotalCents != 300000 {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
	if available, _ := s.Available("prod-1"); available != 7 {
		t.Fatalf("expected projection 7, got %d", available)
	}
	if s.FocusedIndex() != 0 {
		t.Fatalf("expected new line focused, got %d", s.FocusedIndex())
	}
	checkConservation(t, s, seedItems())
	checkTotals(t, s)
}

func TestApplyDeltaExplicitPriceOnlyOnCreate(t *testing.T) {
	s := newSeededSession()
	price := int64(90000)
	s.ApplyQuantityDelta("prod-1", 2, &price)

	if lines := s.Lines(); lines[0].UnitPriceCents != 90000 || lines[0].TotalCents != 180000 {
		t.Fatalf("expected explicit price applied, got %+v", lines[0])
	}

	other := int64(50000)
	s.ApplyQuantityDelta("prod-1", 1, &other)
	if lines := s.Lines(); lines[0].UnitPriceCents != 90000 {
		t.Fatalf("existing line price must not change on delta, got %d", lines[0].UnitPriceCents)
	}
}

func TestApplyDeltaUnknownProductIsNoop(t *testing.T) {
	s := newSeededSession()
	if res := s.ApplyQuantityDelta("prod-missing", 2, nil); res != DeltaNoop {
		t.Fatalf("expected noop for unknown product, got %v", res)
	}
	if len(s.Lines()) != 0 {
		t.Fatalf("expected no lines")
	}
}

func TestApplyDeltaNegativeOnAbsentLineIsNoop(t *testing.T) {
	s := newSeededSession()
	if res := s.ApplyQuantityDelta("prod-1", -2, nil); res != DeltaNoop {
		t.Fatalf("expected noop, got %v", res)
	}
}

func TestOverSellGuardExactBoundary(t *testing.T) {
	s := newSeededSession()

	if res := s.ApplyQuantityDelta("prod-2", 4, nil); res != DeltaCreated {
		t.Fatalf("adding exactly the remaining stock must succeed, got %v", res)
	}
	if available, _ := s.Available("prod-2"); available != 0 {
		t.Fatalf("expected projection 0, got %d", available)
	}
	if res := s.ApplyQuantityDelta("prod-2", 1, nil); res != DeltaRejectedStock {
		t.Fatalf("one more unit past the boundary must be rejected, got %v", res)
	}
	if lines := s.Lines(); lines[0].Qty != 4 {
		t.Fatalf("rejection must not change state, got qty %d", lines[0].Qty)
	}
	checkConservation(t, s, seedItems())
}

func TestDeltaToZeroRemovesAndRestores(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 5, nil)

	if res := s.ApplyQuantityDelta("prod-1", -5, nil); res != DeltaRemoved {
		t.Fatalf("expected removal, got %v", res)
	}
	if len(s.Lines()) != 0 {
		t.Fatalf("expected empty invoice")
	}
	if available, _ := s.Available("prod-1"); available != 10 {
		t.Fatalf("expected full stock restored, got %d", available)
	}
	if s.FocusedIndex() != -1 {
		t.Fatalf("expected focus -1 on empty invoice, got %d", s.FocusedIndex())
	}
}

func TestNetZeroDeltaIdempotence(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 4, nil)

	before := s.Lines()[0]
	availBefore, _ := s.Available("prod-1")

	s.ApplyQuantityDelta("prod-1", 3, nil)
	s.ApplyQuantityDelta("prod-1", -3, nil)

	after := s.Lines()[0]
	availAfter, _ := s.Available("prod-1")
	if before != after || availBefore != availAfter {
		t.Fatalf("net-zero delta changed state: before=%+v/%d after=%+v/%d",
			before, availBefore, after, availAfter)
	}
}

func TestRemovalThenReAddReproducesLine(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 4, nil)
	original := s.Lines()[0]

	s.RemoveItem("prod-1")
	s.ApplyQuantityDelta("prod-1", 4, nil)

	recreated := s.Lines()[0]
	if recreated.Qty != original.Qty || recreated.UnitPriceCents != original.UnitPriceCents || recreated.TotalCents != original.TotalCents {
		t.Fatalf("re-added line differs: %+v vs %+v", recreated, original)
	}
	checkConservation(t, s, seedItems())
}

func TestRemoveItemRepairsFocusedIndex(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 2, nil)
	s.ApplyQuantityDelta("prod-2", 1, nil)

	// Focus the newer line, then remove the older one: focus must shift down
	// to keep pointing at the same line.
	if s.FocusedIndex() != 1 {
		t.Fatalf("expected focus 1, got %d", s.FocusedIndex())
	}
	s.RemoveItem("prod-1")
	if s.FocusedIndex() != 0 {
		t.Fatalf("expected focus repaired to 0, got %d", s.FocusedIndex())
	}
	if s.Lines()[0].Product.ID != "prod-2" {
		t.Fatalf("wrong line survived: %s", s.Lines()[0].Product.ID)
	}
}

func TestClearRestoresProjection(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 6, nil)
	s.ApplyQuantityDelta("prod-2", 2, nil)

	s.Clear()

	if len(s.Lines()) != 0 {
		t.Fatalf("expected empty invoice after clear")
	}
	for _, item := range seedItems() {
		if available, _ := s.Available(item.ID); available != item.Quantity {
			t.Fatalf("stock for %s not restored: %d != %d", item.ID, available, item.Quantity)
		}
	}
	if s.FocusedIndex() != 0 {
		t.Fatalf("expected focus reset to 0, got %d", s.FocusedIndex())
	}
	if s.Buffer() != "" {
		t.Fatalf("expected empty buffer, got %q", s.Buffer())
	}
}

func TestSeedCatalogReseedKeepsReservations(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 3, nil)

	// Re-fetching the same page must keep the 3 units in the invoice
	// reserved against the fetched quantity.
	s.SeedCatalog(seedItems())
	if available, _ := s.Available("prod-1"); available != 7 {
		t.Fatalf("expected 7 after reseed, got %d", available)
	}
	checkConservation(t, s, seedItems())

	// Clearing and reseeding reproduces the original projection exactly.
	s.Clear()
	s.SeedCatalog(seedItems())
	for _, item := range seedItems() {
		if available, _ := s.Available(item.ID); available != item.Quantity {
			t.Fatalf("reseed after clear: %s has %d, want %d", item.ID, available, item.Quantity)
		}
	}
}

func TestInsertionOrderPreservedAndVisualIndexReversed(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.ApplyQuantityDelta("prod-2", 1, nil)

	lines := s.Lines()
	if lines[0].Product.ID != "prod-1" || lines[1].Product.ID != "prod-2" {
		t.Fatalf("storage order broken: %s, %s", lines[0].Product.ID, lines[1].Product.ID)
	}
	if s.VisualIndex(0) != 1 || s.VisualIndex(1) != 0 {
		t.Fatalf("visual index conversion wrong: %d, %d", s.VisualIndex(0), s.VisualIndex(1))
	}
}

func TestSubmitLinesEmptyInvoice(t *testing.T) {
	s := newSeededSession()
	lines, effects := s.SubmitLines()
	if lines != nil {
		t.Fatalf("expected no lines")
	}
	if len(effects) != 1 || effects[0].Kind != EffectNotice || effects[0].Severity != "warning" {
		t.Fatalf("expected a warning notice, got %+v", effects)
	}
}

func TestSubmitLinesSnapshot(t *testing.T) {
	s := newSeededSession()
	price := int64(95000)
	s.ApplyQuantityDelta("prod-1", 2, &price)
	s.ApplyQuantityDelta("prod-2", 1, nil)

	lines, effects := s.SubmitLines()
	if effects != nil {
		t.Fatalf("unexpected effects: %+v", effects)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 submit lines, got %d", len(lines))
	}
	if lines[0].ProductID != "prod-1" || lines[0].Qty != 2 || lines[0].UnitPriceCents != 95000 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if s.TotalCents() != 2*95000+250000 {
		t.Fatalf("unexpected total: %d", s.TotalCents())
	}
}
