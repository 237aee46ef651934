package pos

import "grosirpos/internal/domain"

type ModalMode int

const (
	ModalAdd ModalMode = iota
	ModalEdit
)

// Modal is the short-lived state of the quantity/price confirm dialog. In add
// mode it is fed by a product-detail fetch; in edit mode it is seeded from an
// existing invoice line. Qty 0 is tolerated while the input is mid-edit but
// never commits.
type Modal struct {
	Mode           ModalMode
	Product        domain.ProductSummary
	Tiers          []domain.PriceTier
	TierIndex      int
	Available      int // upper bound for the quantity input
	Qty            int
	UnitPriceCents int64
	PriorQty       int // edit mode only
}

// OpenAddModal opens the dialog for a catalog row after its full detail has
// been fetched. The dialog is not opened when the projection has nothing
// left to sell.
func (s *Session) OpenAddModal(detail domain.ProductDetail) []Effect {
	summary, ok := s.catalogRow(detail.Product.ID)
	if !ok {
		summary = detail.Product.Summary(detail.Brand.Name, detail.Quantity)
	}
	available, known := s.bank[detail.Product.ID]
	if !known {
		available = detail.Quantity
	}
	if available <= 0 {
		s.setLevel(FocusDatatable)
		return []Effect{stockWarning(summary.Name)}
	}

	tiers := detail.Tiers
	if len(tiers) == 0 {
		tiers = detail.Product.TierList()
	}

	s.modal = &Modal{
		Mode:           ModalAdd,
		Product:        summary,
		Tiers:          tiers,
		Available:      available,
		Qty:            1,
		UnitPriceCents: tiers[0].PriceCents,
	}
	s.setLevel(FocusModal)
	// Safe default for when the dialog closes without touching focus.
	s.setFocused(0)
	return nil
}

// openEditForFocused opens the dialog pre-populated from the focused line.
// No detail fetch is needed: the line already carries its committed price.
func (s *Session) openEditForFocused() []Effect {
	line, ok := s.focusedLine()
	if !ok {
		return nil
	}
	available := s.bank[line.Product.ID]
	s.modal = &Modal{
		Mode:    ModalEdit,
		Product: line.Product,
		Tiers: []domain.PriceTier{
			{Name: domain.TierSale, PriceCents: line.Product.PriceSaleCents},
		},
		// The line's own quantity is editable too, so the bound is total
		// stock: what the bank still has plus what the line holds.
		Available:      available + line.Qty,
		Qty:            line.Qty,
		UnitPriceCents: line.UnitPriceCents,
		PriorQty:       line.Qty,
	}
	s.setLevel(FocusModal)
	return nil
}

// OpenEditModal is the mouse path to openEditForFocused: edit a specific
// line regardless of keyboard focus.
func (s *Session) OpenEditModal(productID string) []Effect {
	idx := s.lineIndex(productID)
	if idx < 0 {
		return nil
	}
	s.setFocused(idx)
	s.setLevel(FocusParent)
	return s.openEditForFocused()
}

// ModalSetQuantity updates the dialog's quantity input, clamping to
// [1, Available]. Zero is accepted transiently (an emptied input) and blocks
// confirmation instead of committing.
func (s *Session) ModalSetQuantity(qty int) {
	if s.modal == nil {
		return
	}
	if qty <= 0 {
		s.modal.Qty = 0
		return
	}
	if qty > s.modal.Available {
		qty = s.modal.Available
	}
	s.modal.Qty = qty
}

// ModalSelectTier picks one of the offered price tiers.
func (s *Session) ModalSelectTier(index int) {
	if s.modal == nil || index < 0 || index >= len(s.modal.Tiers) {
		return
	}
	s.modal.TierIndex = index
	s.modal.UnitPriceCents = s.modal.Tiers[index].PriceCents
}

// ModalSetUnitPrice overrides the unit price directly (edit mode exposes a
// free price field alongside the tiers).
func (s *Session) ModalSetUnitPrice(priceCents int64) {
	if s.modal == nil || priceCents < 0 {
		return
	}
	s.modal.UnitPriceCents = priceCents
}

// ConfirmModal commits the dialog. Add mode applies the chosen quantity as a
// fresh delta at the chosen price. Edit mode treats the result as an absolute
// replacement: the quantity change goes through the delta primitive (stock
// guard included, bounded by total stock excluding the line itself), and a
// price change overwrites the line's unit price with the total recomputed.
func (s *Session) ConfirmModal() []Effect {
	m := s.modal
	if m == nil {
		return nil
	}
	if m.Qty < 1 {
		return []Effect{notice("warning", "quantity must be at least 1")}
	}

	defer s.closeModal()

	if m.Mode == ModalAdd {
		price := m.UnitPriceCents
		switch s.ApplyQuantityDelta(m.Product.ID, m.Qty, &price) {
		case DeltaRejectedStock:
			return []Effect{stockWarning(m.Product.Name)}
		case DeltaNoop:
			return nil
		default:
			return []Effect{notice("success", m.Product.Name + " added to invoice")}
		}
	}

	// Edit mode.
	if delta := m.Qty - m.PriorQty; delta != 0 {
		if s.ApplyQuantityDelta(m.Product.ID, delta, nil) == DeltaRejectedStock {
			return []Effect{stockWarning(m.Product.Name)}
		}
	}
	if line, ok := s.findLine(m.Product.ID); ok && line.UnitPriceCents != m.UnitPriceCents {
		line.UnitPriceCents = m.UnitPriceCents
		line.TotalCents = int64(line.Qty) * line.UnitPriceCents
	}
	return []Effect{notice("success", m.Product.Name + " updated")}
}

// CancelModal discards the dialog without touching the ledger.
func (s *Session) CancelModal() {
	if s.modal == nil {
		return
	}
	s.closeModal()
}

func (s *Session) closeModal() {
	s.modal = nil
	s.setLevel(FocusDatatable)
}
