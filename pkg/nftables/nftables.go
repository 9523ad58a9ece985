// Package nftables applies firewall rulesets through the nft binary. The
// orchestrator core only knows the RulesetApplier boundary; rule text is
// authored elsewhere and persisted rule files are the kernel side's concern.
package nftables

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// runFunc executes a command and returns combined output. Injected by tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Applier shells out to nft.
type Applier struct {
	binary string
	run    runFunc
}

// Option configures an Applier.
type Option func(*Applier)

// WithBinary overrides the nft binary path.
func WithBinary(path string) Option {
	return func(a *Applier) {
		a.binary = path
	}
}

func withRun(run runFunc) Option {
	return func(a *Applier) {
		a.run = run
	}
}

// New returns an Applier using the system nft binary.
func New(opts ...Option) *Applier {
	a := &Applier{binary: "nft", run: defaultRun}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ApplyRuleset loads a complete ruleset atomically via nft -f. nft either
// applies the whole file or none of it.
func (a *Applier) ApplyRuleset(ctx context.Context, ruleset string) error {
	tmp, err := os.CreateTemp("", "sentinel-ruleset-*.nft")
	if err != nil {
		return fmt.Errorf("ruleset tempfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(ruleset); err != nil {
		tmp.Close()
		return fmt.Errorf("ruleset write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ruleset write: %w", err)
	}

	out, err := a.run(ctx, a.binary, "-f", tmp.Name())
	if err != nil {
		return fmt.Errorf("nft -f failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// AddElement inserts a value into a named set in the inet sentinel table.
func (a *Applier) AddElement(ctx context.Context, setName, value string) error {
	element := fmt.Sprintf("{ %s }", value)
	out, err := a.run(ctx, a.binary, "add", "element", "inet", "sentinel", setName, element)
	if err != nil {
		return fmt.Errorf("nft add element failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
