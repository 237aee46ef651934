package pos

import (
	"testing"

	"grosirpos/internal/domain"
)

func key(k string) KeyEvent     { return KeyEvent{Key: k} }
func ctrlKey(k string) KeyEvent { return KeyEvent{Key: k, Ctrl: true} }

func hasEffect(effects []Effect, kind EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestCtrlEnterTogglesSearchAndBack(t *testing.T) {
	s := newSeededSession()

	effects := s.HandleKey(ctrlKey("Enter"))
	if s.Level() != FocusSearch {
		t.Fatalf("expected search level, got %s", s.Level())
	}
	if !hasEffect(effects, EffectFocusSearch) {
		t.Fatalf("expected focus-search effect, got %+v", effects)
	}

	// Escape returns to the datatable.
	s.HandleKey(key("Escape"))
	if s.Level() != FocusDatatable {
		t.Fatalf("expected datatable after escape, got %s", s.Level())
	}

	// From search, Ctrl+Enter goes back to the datatable without the
	// focus effect.
	s.HandleKey(ctrlKey("Enter"))
	effects = s.HandleKey(ctrlKey("Enter"))
	if hasEffect(effects, EffectFocusSearch) {
		t.Fatalf("toggle back must not refocus search, got %+v", effects)
	}
	if s.Level() != FocusDatatable {
		t.Fatalf("expected datatable, got %s", s.Level())
	}
}

func TestSearchLevelLeavesOtherKeysToInput(t *testing.T) {
	s := newSeededSession()
	s.HandleKey(ctrlKey("Enter"))

	for _, k := range []string{"a", "5", "Backspace", "ArrowUp"} {
		if effects := s.HandleKey(key(k)); effects != nil {
			t.Fatalf("key %q must pass through to the input, got %+v", k, effects)
		}
	}
	if s.Level() != FocusSearch {
		t.Fatalf("level must stay search, got %s", s.Level())
	}
}

func TestBlurSearchTransitionsToDatatable(t *testing.T) {
	s := newSeededSession()
	s.HandleKey(ctrlKey("Enter"))
	s.BlurSearch()
	if s.Level() != FocusDatatable {
		t.Fatalf("expected datatable after blur, got %s", s.Level())
	}
}

func TestCtrlArrowLeftDeselectsInvoice(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 2, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	s.HandleKey(ctrlKey("ArrowLeft"))
	if s.Level() != FocusDatatable {
		t.Fatalf("expected datatable, got %s", s.Level())
	}
	if s.FocusedIndex() != -1 {
		t.Fatalf("expected deselected invoice line, got %d", s.FocusedIndex())
	}
}

func TestCtrlArrowRightFocusesMostRecentLine(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.ApplyQuantityDelta("prod-2", 1, nil)
	s.HandleKey(ctrlKey("ArrowLeft"))

	s.HandleKey(ctrlKey("ArrowRight"))
	if s.Level() != FocusParent {
		t.Fatalf("expected parent level, got %s", s.Level())
	}
	// Most recently added is last in storage order, top of the display.
	if s.FocusedIndex() != 1 {
		t.Fatalf("expected focus on newest line (1), got %d", s.FocusedIndex())
	}
	if s.VisualIndex(s.FocusedIndex()) != 0 {
		t.Fatalf("newest line must sit at the top of the visual stack")
	}
}

func TestCtrlArrowRightOnEmptyInvoice(t *testing.T) {
	s := newSeededSession()
	s.HandleKey(ctrlKey("ArrowRight"))
	if s.Level() != FocusParent {
		t.Fatalf("expected parent level, got %s", s.Level())
	}
	if s.FocusedIndex() != -1 {
		t.Fatalf("expected focus unchanged on empty invoice, got %d", s.FocusedIndex())
	}
}

func TestParentKeysIgnoredWhenInvoiceEmpty(t *testing.T) {
	s := newSeededSession()
	s.HandleKey(ctrlKey("ArrowRight"))
	for _, k := range []string{"5", "+", "-", "Backspace", "Enter", "ArrowUp"} {
		if effects := s.HandleKey(key(k)); effects != nil {
			t.Fatalf("key %q on empty invoice must be a no-op, got %+v", k, effects)
		}
	}
}

func TestDigitTypingSetsAbsoluteQuantity(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 3, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	effects := s.HandleKey(key("5"))
	if !hasEffect(effects, EffectPreventDefault) {
		t.Fatalf("digits must be preventDefault-ed")
	}
	if s.Buffer() != "5" {
		t.Fatalf("expected buffer 5, got %q", s.Buffer())
	}
	if s.Lines()[0].Qty != 5 {
		t.Fatalf("expected qty 5, got %d", s.Lines()[0].Qty)
	}
	if available, _ := s.Available("prod-1"); available != 5 {
		t.Fatalf("expected projection 5, got %d", available)
	}
}

func TestDigitBufferSlidingWindow(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	for _, d := range []string{"1", "2", "3", "4", "5"} {
		s.HandleKey(key(d))
	}
	// The oldest digit (1) slides out, not the newest.
	if s.Buffer() != "2345" {
		t.Fatalf("expected sliding window 2345, got %q", s.Buffer())
	}
}

func TestDigitRejectionKeepsBufferQuietly(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 3, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	// 50 > 10 total stock: rejected, no notice, buffer keeps the digits.
	s.HandleKey(key("5"))
	effects := s.HandleKey(key("0"))
	if hasEffect(effects, EffectNotice) {
		t.Fatalf("typed-quantity rejection must be silent, got %+v", effects)
	}
	if s.Buffer() != "50" {
		t.Fatalf("expected buffer 50, got %q", s.Buffer())
	}
	if s.Lines()[0].Qty != 5 {
		t.Fatalf("quantity must stay at the last applied value 5, got %d", s.Lines()[0].Qty)
	}
}

func TestZeroBufferIsInert(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 3, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	s.HandleKey(key("0"))
	s.HandleKey(key("0"))
	if s.Buffer() != "00" {
		t.Fatalf("expected buffer 00, got %q", s.Buffer())
	}
	if s.Lines()[0].Qty != 3 {
		t.Fatalf("non-positive buffer must not apply, got qty %d", s.Lines()[0].Qty)
	}
}

func TestBackspaceReappliesThenResetsToOne(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 3, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	s.HandleKey(key("5"))
	s.HandleKey(key("0"))

	// "50" -> "5": still beyond nothing, 5 <= 10 so it applies.
	s.HandleKey(key("Backspace"))
	if s.Buffer() != "5" || s.Lines()[0].Qty != 5 {
		t.Fatalf("expected buffer 5 qty 5, got %q qty %d", s.Buffer(), s.Lines()[0].Qty)
	}

	// "5" -> "": emptied buffer resets the line to exactly 1.
	s.HandleKey(key("Backspace"))
	if s.Buffer() != "" {
		t.Fatalf("expected empty buffer, got %q", s.Buffer())
	}
	if s.Lines()[0].Qty != 1 {
		t.Fatalf("expected qty reset to 1, got %d", s.Lines()[0].Qty)
	}
	if available, _ := s.Available("prod-1"); available != 9 {
		t.Fatalf("expected projection 9, got %d", available)
	}

	// Backspace on an already empty buffer is a no-op.
	s.HandleKey(key("Backspace"))
	if s.Lines()[0].Qty != 1 {
		t.Fatalf("empty-buffer backspace must not change qty, got %d", s.Lines()[0].Qty)
	}
}

func TestEscapeClearsBufferWithoutQuantityChange(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 3, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	s.HandleKey(key("7"))
	s.HandleKey(key("Escape"))
	if s.Buffer() != "" {
		t.Fatalf("expected cleared buffer, got %q", s.Buffer())
	}
	if s.Lines()[0].Qty != 7 {
		t.Fatalf("escape must not change quantity, got %d", s.Lines()[0].Qty)
	}
}

func TestPlusMinusStepQuantity(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	s.HandleKey(key("+"))
	if s.Lines()[0].Qty != 2 || s.Lines()[0].TotalCents != 200000 {
		t.Fatalf("expected qty 2 total 200000, got %+v", s.Lines()[0])
	}
	if available, _ := s.Available("prod-1"); available != 8 {
		t.Fatalf("expected projection 8, got %d", available)
	}

	s.HandleKey(key("-"))
	if s.Lines()[0].Qty != 1 {
		t.Fatalf("expected qty 1, got %d", s.Lines()[0].Qty)
	}

	// Minus at quantity 1 removes the line.
	effects := s.HandleKey(key("-"))
	if len(s.Lines()) != 0 {
		t.Fatalf("expected line removed")
	}
	if !hasEffect(effects, EffectNotice) {
		t.Fatalf("removal should notify, got %+v", effects)
	}
}

func TestPlusAtStockBoundaryWarns(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-2", 4, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	effects := s.HandleKey(key("+"))
	warned := false
	for _, e := range effects {
		if e.Kind == EffectNotice && e.Severity == "warning" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected insufficient-stock warning, got %+v", effects)
	}
	if s.Lines()[0].Qty != 4 {
		t.Fatalf("rejected step must not change qty, got %d", s.Lines()[0].Qty)
	}
}

func TestArrowNavigationMovesFocusAndResetsBuffer(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.ApplyQuantityDelta("prod-2", 1, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	if s.FocusedIndex() != 1 {
		t.Fatalf("expected focus 1, got %d", s.FocusedIndex())
	}
	s.HandleKey(key("3"))
	if s.Buffer() != "3" {
		t.Fatalf("expected buffer 3, got %q", s.Buffer())
	}

	// Down the visual stack = toward the oldest line.
	s.HandleKey(key("ArrowDown"))
	if s.FocusedIndex() != 0 {
		t.Fatalf("expected focus 0, got %d", s.FocusedIndex())
	}
	if s.Buffer() != "" {
		t.Fatalf("focus change must reset the buffer, got %q", s.Buffer())
	}

	// Clamped at the ends.
	s.HandleKey(key("ArrowDown"))
	if s.FocusedIndex() != 0 {
		t.Fatalf("expected clamp at 0, got %d", s.FocusedIndex())
	}
	s.HandleKey(key("ArrowUp"))
	s.HandleKey(key("ArrowUp"))
	if s.FocusedIndex() != 1 {
		t.Fatalf("expected clamp at newest, got %d", s.FocusedIndex())
	}
}

func TestLevelChangeAwayFromParentResetsBuffer(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.HandleKey(ctrlKey("ArrowRight"))
	s.HandleKey(key("7"))

	s.HandleKey(ctrlKey("ArrowLeft"))
	if s.Buffer() != "" {
		t.Fatalf("leaving parent must reset the buffer, got %q", s.Buffer())
	}
}

func TestUnrecognizedKeysAreNoops(t *testing.T) {
	s := newSeededSession()
	s.ApplyQuantityDelta("prod-1", 1, nil)
	s.HandleKey(ctrlKey("ArrowRight"))

	for _, ev := range []KeyEvent{key("x"), key("F5"), ctrlKey("k"), key("*")} {
		if effects := s.HandleKey(ev); effects != nil {
			t.Fatalf("expected no-op for %+v, got %+v", ev, effects)
		}
	}
	if s.Lines()[0].Qty != 1 {
		t.Fatalf("state must be unchanged")
	}
}

// Scenario walk from the sales-screen contract: add 3 of a 10-stock product,
// type 50 (rejected), backspace to empty (reset to 1), step up once, then
// remove entirely.
func TestCashierScenarioEndToEnd(t *testing.T) {
	items := []domain.ProductSummary{
		{ID: "prod-p", Code: "P-01", Name: "Producto P", Quantity: 10, PriceSaleCents: 100000},
	}
	s := NewSession()
	s.SeedCatalog(items)

	// Confirmed via modal at quantity 3, default price.
	s.OpenAddModal(domain.ProductDetail{
		Product:  domain.Product{ID: "prod-p", Name: "Producto P", PriceSaleCents: 100000, Active: true},
		Quantity: 10,
	})
	s.ModalSetQuantity(3)
	s.ConfirmModal()

	line := s.Lines()[0]
	if line.Qty != 3 || line.UnitPriceCents != 100000 || line.TotalCents != 300000 {
		t.Fatalf("unexpected line after confirm: %+v", line)
	}
	if available, _ := s.Available("prod-p"); available != 7 {
		t.Fatalf("expected projection 7, got %d", available)
	}

	s.HandleKey(ctrlKey("ArrowRight"))
	s.HandleKey(key("5"))
	s.HandleKey(key("0"))
	if s.Buffer() != "50" || s.Lines()[0].Qty != 5 {
		t.Fatalf("expected buffer 50 with qty 5 (50 rejected, 5 applied), got %q qty %d",
			s.Buffer(), s.Lines()[0].Qty)
	}

	s.HandleKey(key("Backspace"))
	s.HandleKey(key("Backspace"))
	if s.Lines()[0].Qty != 1 {
		t.Fatalf("expected qty reset to 1, got %d", s.Lines()[0].Qty)
	}
	if available, _ := s.Available("prod-p"); available != 9 {
		t.Fatalf("expected projection 9, got %d", available)
	}

	s.HandleKey(key("+"))
	if s.Lines()[0].Qty != 2 || s.Lines()[0].TotalCents != 200000 {
		t.Fatalf("expected qty 2 total 200000, got %+v", s.Lines()[0])
	}
	if available, _ := s.Available("prod-p"); available != 8 {
		t.Fatalf("expected projection 8, got %d", available)
	}

	s.RemoveItem("prod-p")
	if len(s.Lines()) != 0 {
		t.Fatalf("expected empty invoice")
	}
	if available, _ := s.Available("prod-p"); available != 10 {
		t.Fatalf("expected projection restored to 10, got %d", available)
	}
	if s.FocusedIndex() != -1 {
		t.Fatalf("expected focus -1, got %d", s.FocusedIndex())
	}
}
