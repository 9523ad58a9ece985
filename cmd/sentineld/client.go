package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"
)

// cmdStatus fetches /status from a running daemon and renders it.
func cmdStatus(args []string) error {
	fs := newFlagSet("status")
	addr := fs.String("addr", "127.0.0.1:8737", "daemon address")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", *addr))
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, body)
	}

	if *asJSON {
		fmt.Println(string(body))
		return nil
	}

	var statuses []serviceStatusJSON
	if err := json.Unmarshal(body, &statuses); err != nil {
		return fmt.Errorf("malformed status payload: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROTOCOL\tSTATUS\tPID\tRESTARTS\tUPTIME\tRSS\tERROR")
	for _, s := range statuses {
		uptime := "-"
		if s.UptimeSec > 0 {
			uptime = (time.Duration(s.UptimeSec) * time.Second).String()
		}
		pid := "-"
		if s.PID != 0 {
			pid = fmt.Sprintf("%d", s.PID)
		}
		rss := "-"
		if s.MemoryRSSMB != 0 {
			rss = fmt.Sprintf("%dMB", s.MemoryRSSMB)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.Name, s.Protocol, s.Status, pid, s.RestartCount, uptime, rss, s.LastError)
	}
	return tw.Flush()
}

// cmdLifecycle posts a start/stop/restart against a running daemon.
func cmdLifecycle(op string, args []string) error {
	fs := newFlagSet(op)
	addr := fs.String("addr", "127.0.0.1:8737", "daemon address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sentineld %s <service-name>", op)
	}
	name := fs.Arg(0)

	client := &http.Client{Timeout: 30 * time.Second}
	url := fmt.Sprintf("http://%s/services/%s/%s", *addr, name, op)
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	var result commandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("malformed daemon response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("%s", result.Error)
	}
	fmt.Printf("%s: %s ok\n", name, op)
	return nil
}
