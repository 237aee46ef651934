package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"grosirpos/internal/domain"
	"grosirpos/internal/pos"
	"grosirpos/internal/store"
	"grosirpos/internal/xid"
)

// terminalSession hosts one cashier's pos.Session on the server. The pos core
// is single-writer, so every operation takes the session lock.
type terminalSession struct {
	mu         sync.Mutex
	id         string
	storeID    string
	terminalID string
	cashier    string
	pos        *pos.Session
	page       domain.CatalogPage
	lastUsed   time.Time
}

type sessionTable struct {
	mu   sync.Mutex
	byID map[string]*terminalSession
	ttl  time.Duration
}

func newSessionTable(ttl time.Duration) *sessionTable {
	return &sessionTable{
		byID: make(map[string]*terminalSession),
		ttl:  ttl,
	}
}

func (t *sessionTable) put(sess *terminalSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictIdleLocked()
	t.byID[sess.id] = sess
}

func (t *sessionTable) get(id string) (*terminalSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictIdleLocked()
	sess, ok := t.byID[id]
	return sess, ok
}

func (t *sessionTable) delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[id]; !ok {
		return false
	}
	delete(t.byID, id)
	return true
}

// evictIdleLocked drops sessions idle past the TTL. Lazy eviction on access
// keeps the table bounded without a janitor goroutine.
func (t *sessionTable) evictIdleLocked() {
	cutoff := time.Now().Add(-t.ttl)
	for id, sess := range t.byID {
		if sess.lastUsed.Before(cutoff) {
			delete(t.byID, id)
		}
	}
}

type TerminalNotice struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type TerminalLineView struct {
	Product        domain.ProductSummary `json:"product"`
	Qty            int                   `json:"qty"`
	UnitPriceCents int64                 `json:"unit_price_cents"`
	TotalCents     int64                 `json:"total_cents"`
}

type TerminalModalView struct {
	Mode           string             `json:"mode"`
	Product        domain.ProductSummary `json:"product"`
	Tiers          []domain.PriceTier `json:"tiers"`
	TierIndex      int                `json:"tier_index"`
	Available      int                `json:"available"`
	Qty            int                `json:"qty"`
	UnitPriceCents int64              `json:"unit_price_cents"`
}

// TerminalSessionView is the wire shape of a hosted session after an
// operation. Lines come newest-first, matching the invoice stack on screen;
// FocusedVisualIndex points into that order, -1 when nothing is focused.
type TerminalSessionView struct {
	SessionID          string              `json:"session_id"`
	StoreID            string              `json:"store_id"`
	TerminalID         string              `json:"terminal_id"`
	Level              string              `json:"level"`
	Buffer             string              `json:"buffer"`
	FocusedVisualIndex int                 `json:"focused_visual_index"`
	Lines              []TerminalLineView  `json:"lines"`
	TotalCents         int64               `json:"total_cents"`
	Catalog            domain.CatalogPage  `json:"catalog"`
	Modal              *TerminalModalView  `json:"modal,omitempty"`
	Notices            []TerminalNotice    `json:"notices,omitempty"`
	FocusSearch        bool                `json:"focus_search,omitempty"`
}

type TerminalKeyRequest struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
}

type TerminalModalConfirmRequest struct {
	Qty            int    `json:"qty"`
	TierIndex      *int   `json:"tier_index,omitempty"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}

func (s *Service) OpenTerminalSession(ctx context.Context, storeID string, terminalID string) (TerminalSessionView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return TerminalSessionView{}, fmt.Errorf("authenticated actor required")
	}

	if storeID == "" {
		storeID = s.defaultStoreID
	}
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		terminalID = "terminal-1"
	}

	page, err := s.SearchCatalog(ctx, "", 1)
	if err != nil {
		return TerminalSessionView{}, err
	}

	sess := &terminalSession{
		id:         xid.New("sess"),
		storeID:    storeID,
		terminalID: terminalID,
		cashier:    actor.Username,
		pos:        pos.NewSession(),
		page:       page,
		lastUsed:   time.Now(),
	}
	sess.pos.SeedCatalog(page.Items)
	s.sessions.put(sess)

	s.logAudit(ctx, "session_open", "terminal_session", sess.id, fmt.Sprintf("terminal=%s", terminalID))
	return s.viewOf(sess, nil), nil
}

func (s *Service) CloseTerminalSession(ctx context.Context, sessionID string) error {
	if !s.sessions.delete(sessionID) {
		return store.ErrNotFound
	}
	s.logAudit(ctx, "session_close", "terminal_session", sessionID, "")
	return nil
}

func (s *Service) GetTerminalSession(_ context.Context, sessionID string) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()
	return s.viewOf(sess, nil), nil
}

func (s *Service) TerminalKey(_ context.Context, sessionID string, req TerminalKeyRequest) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()

	effects := sess.pos.HandleKey(pos.KeyEvent{Key: req.Key, Ctrl: req.Ctrl})
	return s.viewOf(sess, effects), nil
}

// TerminalSearch re-fetches a catalog page into the session. The session's
// stock projection keeps invoice reservations across the re-seed.
func (s *Service) TerminalSearch(ctx context.Context, sessionID string, query string, page int) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}

	result, err := s.SearchCatalog(ctx, query, page)
	if err != nil {
		return TerminalSessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()
	sess.page = result
	sess.pos.SeedCatalog(result.Items)
	return s.viewOf(sess, nil), nil
}

// TerminalSelectRow is the row-activation path: fetch the product's full
// detail, then open the add dialog against the session's projection.
func (s *Service) TerminalSelectRow(ctx context.Context, sessionID string, productID string) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}

	detail, err := s.GetProductDetail(ctx, productID)
	if err != nil {
		return TerminalSessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()
	effects := sess.pos.OpenAddModal(detail)
	return s.viewOf(sess, effects), nil
}

func (s *Service) TerminalEditLine(_ context.Context, sessionID string, productID string) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()

	effects := sess.pos.OpenEditModal(productID)
	if sess.pos.Modal() == nil {
		return TerminalSessionView{}, store.ErrNotFound
	}
	return s.viewOf(sess, effects), nil
}

func (s *Service) TerminalRemoveLine(_ context.Context, sessionID string, productID string) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()

	if sess.pos.RemoveItem(productID) == pos.DeltaNoop {
		return TerminalSessionView{}, store.ErrNotFound
	}
	return s.viewOf(sess, nil), nil
}

func (s *Service) TerminalModalConfirm(_ context.Context, sessionID string, req TerminalModalConfirmRequest) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()

	if sess.pos.Modal() == nil {
		return TerminalSessionView{}, store.ErrInvalidInput
	}
	if req.TierIndex != nil {
		sess.pos.ModalSelectTier(*req.TierIndex)
	}
	if req.UnitPriceCents != nil {
		sess.pos.ModalSetUnitPrice(*req.UnitPriceCents)
	}
	sess.pos.ModalSetQuantity(req.Qty)

	effects := sess.pos.ConfirmModal()
	return s.viewOf(sess, effects), nil
}

func (s *Service) TerminalModalCancel(_ context.Context, sessionID string) (TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()

	sess.pos.CancelModal()
	return s.viewOf(sess, nil), nil
}

// TerminalCheckout submits the session's invoice. On success the session is
// cleared and its catalog page re-fetched so the projection restarts from
// the server's post-sale quantities.
func (s *Service) TerminalCheckout(ctx context.Context, sessionID string) (domain.Invoice, TerminalSessionView, error) {
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		return domain.Invoice{}, TerminalSessionView{}, store.ErrNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = time.Now()

	lines, effects := sess.pos.SubmitLines()
	if lines == nil {
		return domain.Invoice{}, s.viewOf(sess, effects), store.ErrInvalidInput
	}

	invoice, err := s.SubmitInvoice(ctx, domain.InvoiceSubmitRequest{
		StoreID:    sess.storeID,
		TerminalID: sess.terminalID,
		Lines:      lines,
	})
	if err != nil {
		return domain.Invoice{}, s.viewOf(sess, nil), err
	}

	sess.pos.Clear()
	if page, err := s.SearchCatalog(ctx, sess.page.Query, sess.page.Page); err == nil {
		sess.page = page
		sess.pos.SeedCatalog(page.Items)
	}
	return invoice, s.viewOf(sess, nil), nil
}

// viewOf snapshots the session. Caller holds the session lock.
func (s *Service) viewOf(sess *terminalSession, effects []pos.Effect) TerminalSessionView {
	p := sess.pos

	stored := p.Lines()
	lines := make([]TerminalLineView, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		lines = append(lines, TerminalLineView{
			Product:        stored[i].Product,
			Qty:            stored[i].Qty,
			UnitPriceCents: stored[i].UnitPriceCents,
			TotalCents:     stored[i].TotalCents,
		})
	}

	focused := -1
	if idx := p.FocusedIndex(); idx >= 0 {
		focused = p.VisualIndex(idx)
	}

	catalog := sess.page
	catalog.Items = p.Catalog()

	view := TerminalSessionView{
		SessionID:          sess.id,
		StoreID:            sess.storeID,
		TerminalID:         sess.terminalID,
		Level:              p.Level().String(),
		Buffer:             p.Buffer(),
		FocusedVisualIndex: focused,
		Lines:              lines,
		TotalCents:         p.TotalCents(),
		Catalog:            catalog,
	}

	if m := p.Modal(); m != nil {
		mode := "add"
		if m.Mode == pos.ModalEdit {
			mode = "edit"
		}
		view.Modal = &TerminalModalView{
			Mode:           mode,
			Product:        m.Product,
			Tiers:          m.Tiers,
			TierIndex:      m.TierIndex,
			Available:      m.Available,
			Qty:            m.Qty,
			UnitPriceCents: m.UnitPriceCents,
		}
	}

	for _, effect := range effects {
		switch effect.Kind {
		case pos.EffectNotice:
			view.Notices = append(view.Notices, TerminalNotice{
				Severity: effect.Severity,
				Message:  effect.Message,
			})
		case pos.EffectFocusSearch:
			view.FocusSearch = true
		}
	}
	return view
}
