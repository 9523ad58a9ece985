package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sentinelos/sentinel/pkg/hostinfo"
	"github.com/sentinelos/sentinel/pkg/nftables"
	"github.com/sentinelos/sentinel/pkg/parser"
)

// cmdParse runs the protocol parser over a file or stdin and prints the
// canonical result. Diagnostics go to stderr; the exit code reflects
// whether parsing succeeded.
func cmdParse(args []string) error {
	fs := newFlagSet("parse")
	protocol := fs.StringP("protocol", "p", "auto", "protocol hint (auto runs detection)")
	file := fs.StringP("file", "f", "", "config file (defaults to stdin)")
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var raw []byte
	var err error
	if *file != "" {
		raw, err = os.ReadFile(*file)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	host := hostinfo.NewSysProvider()
	profile := parser.DefaultProfile()
	if snap, serr := host.Snapshot(context.Background()); serr == nil {
		profile = parserProfile(snap)
	}

	res := parser.New(profile).Parse(*protocol, string(raw))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(res)
	}

	if !res.Parsed {
		return fmt.Errorf("config not parsed")
	}
	return nil
}

func printResult(res parser.Result) {
	detected := ""
	if res.AutoDetected {
		detected = " (detected)"
	}
	fmt.Printf("protocol: %s%s\n", res.Protocol, detected)
	fmt.Printf("parsed:   %v\n", res.Parsed)
	if res.Config != nil {
		if res.Config.Name != "" {
			fmt.Printf("name:     %s\n", res.Config.Name)
		}
		if res.Config.Endpoint != nil {
			fmt.Printf("endpoint: %s:%d\n", res.Config.Endpoint.Host, res.Config.Endpoint.Port)
		}
		if len(res.Config.Peers) > 0 {
			fmt.Printf("peers:    %d\n", len(res.Config.Peers))
		}
		for kind := range res.Config.Credentials {
			fmt.Printf("credential: %s (redacted)\n", kind)
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
	for k, v := range res.Hints {
		fmt.Printf("hint: %s=%s\n", k, v)
	}
}

// cmdHostInfo prints the host resource snapshot.
func cmdHostInfo(args []string) error {
	fs := newFlagSet("host-info")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := hostinfo.NewSysProvider().Snapshot(context.Background())
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("cpus:             %d\n", snap.CPUCount)
	fmt.Printf("cpu usage:        %.1f%%\n", snap.CPUUsagePercent)
	fmt.Printf("memory total:     %d MB\n", snap.MemoryTotalMB)
	fmt.Printf("memory available: %d MB\n", snap.MemoryAvailableMB)
	fmt.Printf("virtio nics:      %v\n", snap.VirtIONetDevices)
	fmt.Printf("virtio disks:     %v\n", snap.VirtIOBlockDevices)
	return nil
}

// cmdApplyRules loads an nftables ruleset file atomically.
func cmdApplyRules(args []string) error {
	fs := newFlagSet("apply-rules")
	file := fs.StringP("file", "f", "", "ruleset file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("usage: sentineld apply-rules --file <ruleset.nft>")
	}

	ruleset, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := nftables.New().ApplyRuleset(ctx, string(ruleset)); err != nil {
		return err
	}
	fmt.Println("ruleset applied")
	return nil
}
