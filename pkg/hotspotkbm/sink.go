package hotspotkbm

import (
	"fmt"
	"sync"

	"github.com/bendahl/uinput"
)

// button names accepted by Sink.Click, per the wire protocol's CLICK verb.
const (
	ButtonLeft   = "LEFT"
	ButtonRight  = "RIGHT"
	ButtonMiddle = "MIDDLE"
)

// Sink drives the two virtual uinput devices (mouse, keyboard) that back
// every synthesised input event. It is the only component that touches
// /dev/uinput; everything else calls through Move/Scroll/Click/KeyEvent.
//
// Every method returns the device write error. The control server logs
// failed Click and KeyEvent writes at error level; the smoothers discard
// failed Move and Scroll writes without logging. The device is never torn
// down in response to a write failure.
type Sink struct {
	mu       sync.Mutex
	mouse    uinput.Mouse
	keyboard uinput.Keyboard
	closed   bool
}

// NewSink creates the mouse and keyboard uinput devices, trying each of
// paths in order until one succeeds. Device creation failures here are
// fatal at startup per the error handling policy: the server cannot do
// anything useful without a working input sink.
func NewSink(paths []string, serverName string) (*Sink, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no uinput device paths configured")
	}

	var lastErr error
	for _, p := range paths {
		mouse, err := uinput.CreateMouse(p, []byte(serverName+"-mouse"))
		if err != nil {
			lastErr = fmt.Errorf("create mouse device at %s: %w", p, err)
			continue
		}
		keyboard, err := uinput.CreateKeyboard(p, []byte(serverName+"-keyboard"))
		if err != nil {
			mouse.Close()
			lastErr = fmt.Errorf("create keyboard device at %s: %w", p, err)
			continue
		}
		return &Sink{mouse: mouse, keyboard: keyboard}, nil
	}
	return nil, fmt.Errorf("open uinput device: %w", lastErr)
}

// Close destroys both virtual devices. It is idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.mouse.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.keyboard.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Move emits relative pointer motion. Called by the Input Smoother's
// discharge loop while holding the smoother's lock. Like every Sink method,
// it also takes the Sink's own mutex, which serialises all writes to both
// devices, including Scroll calls from the Scroll Smoother.
func (s *Sink) Move(dx, dy int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (dx == 0 && dy == 0) {
		return nil
	}
	return s.mouse.Move(dx, dy)
}

// Scroll emits vertical and/or horizontal wheel motion.
func (s *Sink) Scroll(vertical, horizontal int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	var err error
	if vertical != 0 {
		err = s.mouse.Wheel(false, vertical)
	}
	if horizontal != 0 {
		if herr := s.mouse.Wheel(true, horizontal); err == nil {
			err = herr
		}
	}
	return err
}

// Click presses or releases a mouse button. button must be one of
// ButtonLeft/ButtonRight/ButtonMiddle; the caller validates this against the
// wire protocol before calling.
func (s *Sink) Click(button string, down bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	switch button {
	case ButtonLeft:
		if down {
			return s.mouse.LeftPress()
		}
		return s.mouse.LeftRelease()
	case ButtonRight:
		if down {
			return s.mouse.RightPress()
		}
		return s.mouse.RightRelease()
	case ButtonMiddle:
		if down {
			return s.mouse.MiddlePress()
		}
		return s.mouse.MiddleRelease()
	default:
		return nil
	}
}

// KeyEvent presses or releases a keyboard key, translated through the
// static keymap. Unknown key names are silently dropped.
func (s *Sink) KeyEvent(key string, down bool) error {
	code, ok := keymap[key]
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if down {
		return s.keyboard.KeyDown(code)
	}
	return s.keyboard.KeyUp(code)
}
