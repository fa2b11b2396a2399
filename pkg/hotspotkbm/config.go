// Package hotspotkbm implements a networked virtual keyboard/mouse server:
// a companion app on a handheld discovers the host, pairs with a short-lived
// code, then streams pointer and key events that are synthesised on the host
// via the Linux uinput subsystem.
package hotspotkbm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds every runtime-tunable setting. Each field's env tag names its
// environment variable and default value; fields with a "?" suffix on the key
// may be explicitly set to the empty value instead of falling back to the
// default. UnmarshalEnv is the only loader: no command-line flag sets an
// individual field.
type Config struct {
	// ServerName is advertised in the discovery response.
	ServerName string `env:"HOTSPOTKBM_SERVER_NAME=hotspot-kbm"`

	// DiscoveryAddr is the UDP address the discovery responder binds to.
	DiscoveryAddr string `env:"HOTSPOTKBM_DISCOVERY_ADDR=:5000"`

	// InputAddr is the UDP address the pointer/scroll receiver binds to.
	InputAddr string `env:"HOTSPOTKBM_INPUT_ADDR=:5001"`

	// ControlAddr is the TCP address the control server binds to.
	ControlAddr string `env:"HOTSPOTKBM_CONTROL_ADDR=:5002"`

	// ControlPort is advertised in the discovery response; it must match the
	// port component of ControlAddr.
	ControlPort int `env:"HOTSPOTKBM_CONTROL_PORT=5002"`

	// MetricsAddr is the HTTP address metrics are exposed on. Empty disables
	// the metrics HTTP server (counters are still collected).
	MetricsAddr string `env:"HOTSPOTKBM_METRICS_ADDR?="`

	// AuthTimeout bounds how long a generated pairing code stays valid.
	AuthTimeout time.Duration `env:"HOTSPOTKBM_AUTH_TIMEOUT=300s"`

	// FPS is the smoother discharge rate, in frames per second.
	FPS float64 `env:"HOTSPOTKBM_FPS=60"`

	// PointerBaseRate is the Input Smoother's base discharge rate.
	PointerBaseRate float64 `env:"HOTSPOTKBM_POINTER_BASE_RATE=0.22"`

	// PointerContinuationTimeout bounds the pointer ease-out phase.
	PointerContinuationTimeout time.Duration `env:"HOTSPOTKBM_POINTER_CONTINUATION_TIMEOUT=80ms"`

	// ScrollBaseRate is the Scroll Smoother's base discharge rate.
	ScrollBaseRate float64 `env:"HOTSPOTKBM_SCROLL_BASE_RATE=0.25"`

	// ScrollMomentumTimeout bounds the scroll momentum (flick) phase.
	ScrollMomentumTimeout time.Duration `env:"HOTSPOTKBM_SCROLL_MOMENTUM_TIMEOUT=800ms"`

	// ScrollMomentumDecay is the per-frame velocity decay during the scroll
	// momentum phase.
	ScrollMomentumDecay float64 `env:"HOTSPOTKBM_SCROLL_MOMENTUM_DECAY=0.90"`

	// UinputPaths lists the uinput device nodes to try, in order.
	UinputPaths []string `env:"HOTSPOTKBM_UINPUT_PATHS=/dev/uinput,/dev/input/uinput"`

	// LogLevel is the minimum zerolog level logged.
	LogLevel zerolog.Level `env:"HOTSPOTKBM_LOG_LEVEL=info"`

	// LogPretty selects the human-readable console writer over JSON.
	LogPretty bool `env:"HOTSPOTKBM_LOG_PRETTY?=true"`
}

// UnmarshalEnv applies environment variables in es (typically os.Environ,
// or the contents of an env file) to c, using each field's default when the
// variable is unset. Unrecognised HOTSPOTKBM_* variables are an error, as
// they are almost always a typo.
func (c *Config) UnmarshalEnv(es []string) error {
	em := map[string]string{}
	for _, e := range es {
		if strings.HasPrefix(e, "HOTSPOTKBM_") {
			if k, v, ok := strings.Cut(e, "="); ok {
				em[k] = v
			}
		}
	}

	cv := reflect.ValueOf(c).Elem()
	for _, ctf := range reflect.VisibleFields(cv.Type()) {
		env, ok := ctf.Tag.Lookup("env")
		if !ok {
			continue
		}

		var unsettable bool
		key, val, _ := strings.Cut(env, "=")
		if strings.HasSuffix(key, "?") {
			key = strings.TrimSuffix(key, "?")
			unsettable = true
		}
		if v, exists := em[key]; exists {
			if unsettable || v != "" {
				val = v
			}
			delete(em, key)
		}

		cvf := cv.FieldByName(ctf.Name)
		switch cvf.Interface().(type) {
		case string:
			cvf.SetString(val)
		case int:
			if val == "" {
				cvf.SetInt(0)
			} else if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				cvf.SetInt(v)
			} else {
				return fmt.Errorf("env %s: parse %q: %w", key, val, err)
			}
		case bool:
			if val == "" {
				cvf.SetBool(false)
			} else if v, err := strconv.ParseBool(val); err == nil {
				cvf.SetBool(v)
			} else {
				return fmt.Errorf("env %s: parse %q: %w", key, val, err)
			}
		case float64:
			if val == "" {
				cvf.SetFloat(0)
			} else if v, err := strconv.ParseFloat(val, 64); err == nil {
				cvf.SetFloat(v)
			} else {
				return fmt.Errorf("env %s: parse %q: %w", key, val, err)
			}
		case []string:
			if val == "" {
				cvf.Set(reflect.ValueOf([]string{}))
			} else {
				cvf.Set(reflect.ValueOf(strings.Split(val, ",")))
			}
		case time.Duration:
			if v, err := time.ParseDuration(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s: parse %q: %w", key, val, err)
			}
		case zerolog.Level:
			if v, err := zerolog.ParseLevel(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s: parse %q: %w", key, val, err)
			}
		default:
			return fmt.Errorf("unhandled config field type %T (%s)", cvf.Interface(), env)
		}
	}
	for key, val := range em {
		if val != "" {
			return fmt.Errorf("unknown environment variable %q", key)
		}
	}
	return nil
}

// DefaultConfig returns a Config populated entirely from compiled-in
// defaults, as if no environment variables were set.
func DefaultConfig() Config {
	var c Config
	if err := c.UnmarshalEnv(nil); err != nil {
		panic(err)
	}
	return c
}
