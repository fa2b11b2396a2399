package hotspotkbm

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"
)

const authCodeLength = 6

// AuthGate generates and validates the short-lived pairing code a handheld
// must supply over the control channel before a Session Gate will accept it.
// All methods are safe for concurrent use.
type AuthGate struct {
	timeout time.Duration

	mu            sync.Mutex
	code          string
	generatedAt   time.Time
	hasCode       bool
	authenticated bool
}

// NewAuthGate returns a gate in its pre-Generate state: no code, not
// authenticated.
func NewAuthGate(timeout time.Duration) *AuthGate {
	return &AuthGate{timeout: timeout}
}

// Generate produces a new uniformly random decimal pairing code, records the
// generation time, and clears any prior authenticated state. It invalidates
// whatever code a previous call to Generate produced.
func (g *AuthGate) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.code = randomDigits(authCodeLength)
	g.generatedAt = time.Now()
	g.hasCode = true
	g.authenticated = false
	return g.code
}

// Validate trims whitespace from input and compares it against the current
// code. It returns true only if a code exists, has not expired, and matches.
// A matching call sets the authenticated flag. An expired code is discarded
// (one-shot expiry): the next call to Validate, even with the right digits,
// returns false until Generate is called again. A false result never changes
// the authenticated flag.
func (g *AuthGate) Validate(input string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasCode {
		return false
	}
	if time.Since(g.generatedAt) > g.timeout {
		g.hasCode = false
		g.code = ""
		return false
	}
	if strings.TrimSpace(input) == g.code {
		g.authenticated = true
		return true
	}
	return false
}

// IsAuthenticated reports whether the most recent Validate call succeeded.
func (g *AuthGate) IsAuthenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// CurrentCode returns the active pairing code, if any.
func (g *AuthGate) CurrentCode() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.code, g.hasCode
}

// Reset returns the gate to its pre-Generate state.
func (g *AuthGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.code = ""
	g.hasCode = false
	g.authenticated = false
}

// randomDigits returns n uniformly random decimal digits. The pairing code
// gates synthetic keyboard/mouse access to the host from anything on the
// local network, so it is drawn from crypto/rand rather than math/rand.
func randomDigits(n int) string {
	const digits = "0123456789"
	b := make([]byte, 0, n)
	var one [1]byte
	for len(b) < n {
		if _, err := rand.Read(one[:]); err != nil {
			panic(fmt.Errorf("generate pairing code: %w", err))
		}
		// 250 is the largest multiple of 10 below 256; rejecting bytes at or
		// above it keeps every digit equally likely.
		if one[0] < 250 {
			b = append(b, digits[int(one[0])%len(digits)])
		}
	}
	return string(b)
}
