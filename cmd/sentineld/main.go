// sentineld is the privacy-router control plane daemon and its operator CLI.
//
// The serve command runs the daemon: it registers configured services,
// auto-starts the marked ones, runs the health monitor and exposes the HTTP
// operator surface. The remaining commands are one-shot: parse, host-info
// and apply-rules run locally; status, start, stop and restart talk to a
// running daemon.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

const usage = `Usage: sentineld <command> [flags]

Commands:
  serve        run the control plane daemon
  status       show service status from a running daemon
  start        start a service on a running daemon
  stop         stop a service on a running daemon
  restart      restart a service on a running daemon
  parse        parse a config locally and print the canonical form
  host-info    print the host resource snapshot
  apply-rules  apply an nftables ruleset file

Run 'sentineld <command> --help' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "status":
		err = cmdStatus(os.Args[2:])
	case "start", "stop", "restart":
		err = cmdLifecycle(cmd, os.Args[2:])
	case "parse":
		err = cmdParse(os.Args[2:])
	case "host-info":
		err = cmdHostInfo(os.Args[2:])
	case "apply-rules":
		err = cmdApplyRules(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "sentineld %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	return fs
}
