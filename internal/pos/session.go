package pos

import (
	"fmt"

	"grosirpos/internal/domain"
)

// Line is one invoice entry. TotalCents is always Qty * UnitPriceCents.
type Line struct {
	Product        domain.ProductSummary
	Qty            int
	UnitPriceCents int64
	TotalCents     int64
}

// Session holds the whole sale state for one terminal: focus level, typed
// quantity buffer, the ordered invoice ledger and the projected stock of the
// last fetched catalog page. All mutation goes through its methods; callers
// are expected to serialize access (single writer).
type Session struct {
	level   FocusLevel
	buffer  string
	focused int // storage-order index into lines; -1 when nothing focused
	lines   []Line
	bank    map[string]int // productID -> projected available quantity
	catalog []domain.ProductSummary
	modal   *Modal
}

func NewSession() *Session {
	return &Session{
		level:   FocusDatatable,
		focused: -1,
		bank:    make(map[string]int),
	}
}

func (s *Session) Level() FocusLevel { return s.level }
func (s *Session) Buffer() string    { return s.buffer }
func (s *Session) FocusedIndex() int { return s.focused }
func (s *Session) Modal() *Modal     { return s.modal }

// Lines returns the ledger in storage order (oldest first). Presentation
// reverses it; see VisualIndex.
func (s *Session) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Catalog returns the last seeded catalog rows with their projected
// (not server-side) quantities.
func (s *Session) Catalog() []domain.ProductSummary {
	out := make([]domain.ProductSummary, len(s.catalog))
	copy(out, s.catalog)
	for i := range out {
		out[i].Quantity = s.bank[out[i].ID]
	}
	return out
}

// Available reports the projected stock for a product, and whether the
// product is part of the current projection at all.
func (s *Session) Available(productID string) (int, bool) {
	qty, ok := s.bank[productID]
	return qty, ok
}

// VisualIndex converts a storage-order line index to its position in the
// reversed (newest-first) display. It is the only place visual order exists;
// the ledger itself never reorders.
func (s *Session) VisualIndex(storageIndex int) int {
	return len(s.lines) - 1 - storageIndex
}

// SeedCatalog replaces the stock projection with a freshly fetched catalog
// page. Quantities already committed to the invoice stay reserved: the
// projection for a product is the fetched quantity minus what the invoice
// holds, floored at zero, so the conservation law survives re-fetches.
func (s *Session) SeedCatalog(items []domain.ProductSummary) {
	s.catalog = make([]domain.ProductSummary, len(items))
	copy(s.catalog, items)
	s.bank = make(map[string]int, len(items))
	for _, item := range items {
		available := item.Quantity
		if line, ok := s.findLine(item.ID); ok {
			available -= line.Qty
		}
		if available < 0 {
			available = 0
		}
		s.bank[item.ID] = available
	}
}

func (s *Session) findLine(productID string) (*Line, bool) {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return &s.lines[i], true
		}
	}
	return nil, false
}

func (s *Session) lineIndex(productID string) int {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// DeltaResult reports what a quantity-delta application did.
type DeltaResult int

const (
	DeltaNoop DeltaResult = iota
	DeltaApplied
	DeltaCreated
	DeltaRemoved
	DeltaRejectedStock
)

// ApplyQuantityDelta is the single mutation primitive for the invoice ledger.
// Every input path (typed digits, +/- keys, confirm dialog) funnels through
// it so the stock guard lives in exactly one place.
//
// explicitUnitPrice applies only when a new line is created; nil means the
// product's default sale price.
func (s *Session) ApplyQuantityDelta(productID string, delta int, explicitUnitPrice *int64) DeltaResult {
	available, known := s.bank[productID]
	if !known {
		// Product not part of the current projection; defensive no-op.
		return DeltaNoop
	}

	idx := s.lineIndex(productID)
	if idx < 0 {
		if delta <= 0 {
			return DeltaNoop
		}
		if delta > available {
			return DeltaRejectedStock
		}
		product, ok := s.catalogRow(productID)
		if !ok {
			return DeltaNoop
		}
		unitPrice := product.PriceSaleCents
		if explicitUnitPrice != nil {
			unitPrice = *explicitUnitPrice
		}
		s.lines = append(s.lines, Line{
			Product:        product,
			Qty:            delta,
			UnitPriceCents: unitPrice,
			TotalCents:     int64(delta) * unitPrice,
		})
		s.bank[productID] = available - delta
		s.setFocused(len(s.lines) - 1)
		return DeltaCreated
	}

	line := &s.lines[idx]
	newQty := line.Qty + delta
	if newQty <= 0 {
		// Full removal: everything the line held goes back to the bank.
		s.bank[productID] = available + line.Qty
		s.removeLineAt(idx)
		return DeltaRemoved
	}
	newStock := available - delta
	if delta > 0 && newStock < 0 {
		return DeltaRejectedStock
	}
	line.Qty = newQty
	line.TotalCents = int64(newQty) * line.UnitPriceCents
	s.bank[productID] = newStock
	return DeltaApplied
}

func (s *Session) catalogRow(productID string) (domain.ProductSummary, bool) {
	for _, item := range s.catalog {
		if item.ID == productID {
			return item, true
		}
	}
	return domain.ProductSummary{}, false
}

// removeLineAt deletes the line and repairs the focused index: focus moves to
// the previous line, or 0, or -1 when the ledger is now empty.
func (s *Session) removeLineAt(idx int) {
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	switch {
	case len(s.lines) == 0:
		s.focused = -1
	case s.focused > idx:
		s.focused--
	case s.focused >= len(s.lines):
		s.focused = len(s.lines) - 1
	case s.focused < 0:
		s.focused = 0
	}
	s.buffer = ""
}

// RemoveItem deletes a line entirely, restoring its full quantity to the
// stock projection.
func (s *Session) RemoveItem(productID string) DeltaResult {
	line, ok := s.findLine(productID)
	if !ok {
		return DeltaNoop
	}
	return s.ApplyQuantityDelta(productID, -line.Qty, nil)
}

// Clear empties the invoice, restoring stock line by line through the normal
// removal path, and resets focus and the typed buffer.
func (s *Session) Clear() {
	for len(s.lines) > 0 {
		s.RemoveItem(s.lines[0].Product.ID)
	}
	s.focused = 0
	s.buffer = ""
}

// SubmitLines snapshots the ledger for invoice submission. It returns an
// error effect when the invoice is empty.
func (s *Session) SubmitLines() ([]domain.InvoiceSubmitLine, []Effect) {
	if len(s.lines) == 0 {
		return nil, []Effect{notice("warning", "no items in the invoice")}
	}
	out := make([]domain.InvoiceSubmitLine, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, domain.InvoiceSubmitLine{
			ProductID:      line.Product.ID,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return out, nil
}

// TotalCents sums the ledger's line totals.
func (s *Session) TotalCents() int64 {
	var total int64
	for _, line := range s.lines {
		total += line.TotalCents
	}
	return total
}

// setLevel changes the focus level, resetting the typed buffer whenever the
// invoice list loses keyboard ownership.
func (s *Session) setLevel(level FocusLevel) {
	if s.level == FocusParent && level != FocusParent {
		s.buffer = ""
	}
	s.level = level
}

// setFocused moves the focused invoice line, resetting the typed buffer when
// the target changes.
func (s *Session) setFocused(idx int) {
	if idx != s.focused {
		s.buffer = ""
	}
	s.focused = idx
}

func (s *Session) focusedLine() (*Line, bool) {
	if s.focused < 0 || s.focused >= len(s.lines) {
		return nil, false
	}
	return &s.lines[s.focused], true
}

func stockWarning(name string) Effect {
	return notice("warning", fmt.Sprintf("insufficient stock for %s", name))
}
