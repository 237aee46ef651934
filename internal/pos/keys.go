package pos

import "strconv"

// HandleKey routes a raw keyboard event according to the current focus level
// and returns the side effects the host must perform. Unrecognized
// combinations are no-ops.
func (s *Session) HandleKey(ev KeyEvent) []Effect {
	// Global bindings work at every level except inside the modal, which
	// owns its keys entirely.
	if s.level != FocusModal && ev.Ctrl {
		switch ev.Key {
		case "Enter":
			if s.level == FocusSearch {
				s.setLevel(FocusDatatable)
				return []Effect{preventDefault()}
			}
			s.setLevel(FocusSearch)
			return []Effect{preventDefault(), focusSearch()}
		case "ArrowLeft":
			s.setLevel(FocusDatatable)
			s.setFocused(-1)
			return []Effect{preventDefault()}
		case "ArrowRight":
			s.setLevel(FocusParent)
			if len(s.lines) > 0 {
				// Most-recently-added line: last in storage order, top of
				// the reversed display.
				s.setFocused(len(s.lines) - 1)
			}
			return []Effect{preventDefault()}
		}
	}

	switch s.level {
	case FocusSearch:
		if ev.Key == "Escape" && !ev.Ctrl {
			s.setLevel(FocusDatatable)
			return []Effect{preventDefault()}
		}
		// Everything else belongs to the native text input.
		return nil
	case FocusParent:
		return s.handleParentKey(ev)
	case FocusModal:
		// The modal has its own handlers; see modal.go.
		return nil
	default:
		return nil
	}
}

// BlurSearch is the blur counterpart of Escape on the search box. The host is
// responsible for the short grace delay so that a click on a result row is
// not pre-empted.
func (s *Session) BlurSearch() {
	if s.level == FocusSearch {
		s.setLevel(FocusDatatable)
	}
}

func (s *Session) handleParentKey(ev KeyEvent) []Effect {
	if ev.Ctrl || len(s.lines) == 0 {
		return nil
	}

	if isDigit(ev.Key) {
		return append([]Effect{preventDefault()}, s.pushDigit(ev.Key)...)
	}

	switch ev.Key {
	case "Backspace":
		return append([]Effect{preventDefault()}, s.popDigit()...)
	case "Escape":
		s.buffer = ""
		return []Effect{preventDefault()}
	case "+":
		return append([]Effect{preventDefault()}, s.stepFocused(1)...)
	case "-":
		return append([]Effect{preventDefault()}, s.stepFocused(-1)...)
	case "ArrowUp":
		// Up the visual stack is toward the newest line, i.e. a higher
		// storage index.
		if s.focused < len(s.lines)-1 {
			s.setFocused(s.focused + 1)
		}
		return []Effect{preventDefault()}
	case "ArrowDown":
		if s.focused > 0 {
			s.setFocused(s.focused - 1)
		}
		return []Effect{preventDefault()}
	case "Enter":
		return append([]Effect{preventDefault()}, s.openEditForFocused()...)
	default:
		return nil
	}
}

// pushDigit appends a digit to the typed-quantity buffer (sliding window of
// maxBufferLen, oldest digit dropped first) and re-applies the parsed value
// as an absolute target quantity for the focused line. A rejected
// application leaves the buffer showing what was typed: the cashier resolves
// the mismatch by typing on or backspacing, so no notice is emitted here.
func (s *Session) pushDigit(digit string) []Effect {
	line, ok := s.focusedLine()
	if !ok {
		return nil
	}
	s.buffer += digit
	if len(s.buffer) > maxBufferLen {
		s.buffer = s.buffer[len(s.buffer)-maxBufferLen:]
	}
	s.applyBufferTo(line)
	return nil
}

// popDigit drops the last typed digit. An emptied buffer resets the focused
// line to quantity 1.
func (s *Session) popDigit() []Effect {
	line, ok := s.focusedLine()
	if !ok {
		return nil
	}
	if s.buffer == "" {
		return nil
	}
	s.buffer = s.buffer[:len(s.buffer)-1]
	if s.buffer == "" {
		s.ApplyQuantityDelta(line.Product.ID, 1-line.Qty, nil)
		return nil
	}
	s.applyBufferTo(line)
	return nil
}

// applyBufferTo translates the buffer into a quantity delta for the line. A
// buffer that does not parse to a positive value ("0", "00") is an
// in-progress keystroke sequence and applies nothing.
func (s *Session) applyBufferTo(line *Line) {
	target, err := strconv.Atoi(s.buffer)
	if err != nil || target <= 0 {
		return
	}
	s.ApplyQuantityDelta(line.Product.ID, target-line.Qty, nil)
}

// stepFocused applies the +/- single-unit delta to the focused line, with a
// visible warning when stock blocks an increment.
func (s *Session) stepFocused(delta int) []Effect {
	line, ok := s.focusedLine()
	if !ok {
		return nil
	}
	name := line.Product.Name
	switch s.ApplyQuantityDelta(line.Product.ID, delta, nil) {
	case DeltaRejectedStock:
		return []Effect{stockWarning(name)}
	case DeltaRemoved:
		return []Effect{notice("success", name + " removed from invoice")}
	default:
		return nil
	}
}
