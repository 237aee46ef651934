// Package pos implements the keyboard-driven sale session used by the sales
// screen: a focus-level state machine over the search box, the catalog
// datatable, the invoice list and the confirm dialog, plus the in-memory
// invoice ledger and the stock projection it keeps in step with.
//
// The package is deliberately free of I/O. Hosts (the HTTP terminal-session
// API and the cashier TUI) feed it key events and catalog data and act on the
// effects it returns.
package pos

// FocusLevel identifies which region of the sales screen owns keyboard input.
// Exactly one level is active at a time.
type FocusLevel int

const (
	FocusSearch FocusLevel = iota
	FocusDatatable
	FocusParent // the invoice list
	FocusModal
)

func (l FocusLevel) String() string {
	switch l {
	case FocusSearch:
		return "search"
	case FocusDatatable:
		return "datatable"
	case FocusParent:
		return "parent"
	case FocusModal:
		return "modal"
	default:
		return "unknown"
	}
}

// KeyEvent is a normalized keyboard event. Key uses the DOM key names the
// original screen listened for: "0".."9", "+", "-", "Enter", "Escape",
// "Backspace", "ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight".
type KeyEvent struct {
	Key  string
	Ctrl bool
}

type EffectKind int

const (
	// EffectPreventDefault tells the host to suppress the event's default
	// behavior (browser scrolling, terminal bell, form submit).
	EffectPreventDefault EffectKind = iota
	// EffectFocusSearch tells the host to move real input focus to the
	// search box.
	EffectFocusSearch
	// EffectNotice is a transient user-visible message.
	EffectNotice
)

type Effect struct {
	Kind     EffectKind
	Severity string // "success", "warning" or "error"; empty for non-notices
	Message  string
}

func notice(severity, message string) Effect {
	return Effect{Kind: EffectNotice, Severity: severity, Message: message}
}

func preventDefault() Effect {
	return Effect{Kind: EffectPreventDefault}
}

func focusSearch() Effect {
	return Effect{Kind: EffectFocusSearch}
}

// maxBufferLen bounds the typed-quantity buffer; older digits slide out.
const maxBufferLen = 4

func isDigit(key string) bool {
	return len(key) == 1 && key[0] >= '0' && key[0] <= '9'
}
