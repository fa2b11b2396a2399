// Command hotspotkbmd runs the hotspot keyboard/mouse server: it pairs with
// a handheld companion app over the local network and synthesises its
// pointer, scroll, click, and key events as genuine Linux input via uinput.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-envparse"
	"github.com/spf13/pflag"

	"github.com/devflex3006/hotspot-kbm/pkg/hotspotkbm"
)

var opt struct {
	Help    bool
	EnvFile string
}

func init() {
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
	pflag.StringVar(&opt.EnvFile, "env-file", "", "Read configuration from this file instead of the environment")
}

func main() {
	pflag.Parse()

	if opt.Help {
		fmt.Printf("usage: %s [options]\n\noptions:\n%s\n", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(0)
	}

	var e []string
	if opt.EnvFile == "" {
		e = os.Environ()
	} else {
		x, err := readEnv(opt.EnvFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read env file: %v\n", err)
			os.Exit(1)
		}
		e = x
	}

	var c hotspotkbm.Config
	if err := c.UnmarshalEnv(e); err != nil {
		fmt.Fprintf(os.Stderr, "error: parse config: %v\n", err)
		os.Exit(1)
	}

	s, err := hotspotkbm.NewServer(&c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: initialize server: %v\n", err)
		os.Exit(1)
	}

	s.OnPairingCode = func(code string) {
		s.Logger.Info().Str("pairing_code", code).Msg("pairing code ready")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: run server: %v\n", err)
		os.Exit(1)
	}
}

func readEnv(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := envparse.Parse(f)
	if err != nil {
		return nil, err
	}

	r := make([]string, 0, len(m))
	for k, v := range m {
		r = append(r, k+"="+v)
	}
	return r, nil
}
