// oceanctl talks to a running ingestion daemon over its control API.
//
// Usage:
//
//	oceanctl [-addr host:port] run-once
//	oceanctl [-addr host:port] status
//	oceanctl [-addr host:port] freshness
//	oceanctl [-addr host:port] schedule -interval 12
//	oceanctl [-addr host:port] cleanup -retention 7
//	oceanctl [-addr host:port] reset -confirm
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "control API address of the ingestion daemon")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	base := "http://" + *addr
	client := &http.Client{Timeout: 30 * time.Minute} // a synchronous refresh can take a while

	var err error
	switch args[0] {
	case "run-once":
		err = post(client, base+"/api/v1/refresh", nil)
	case "status":
		err = get(client, base+"/api/v1/status")
	case "freshness":
		err = get(client, base+"/api/v1/freshness")
	case "schedule":
		fs := flag.NewFlagSet("schedule", flag.ExitOnError)
		interval := fs.Float64("interval", 24, "refresh interval in hours")
		fs.Parse(args[1:])
		err = post(client, base+"/api/v1/schedule", map[string]any{"interval_hours": *interval})
	case "cleanup":
		fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
		retention := fs.Int("retention", 7, "retention window in days")
		fs.Parse(args[1:])
		err = post(client, base+"/api/v1/cleanup", map[string]any{"retention_days": *retention})
	case "reset":
		fs := flag.NewFlagSet("reset", flag.ExitOnError)
		confirm := fs.Bool("confirm", false, "confirm wiping all stored measurements")
		fs.Parse(args[1:])
		if !*confirm {
			fmt.Fprintln(os.Stderr, "reset requires -confirm")
			os.Exit(2)
		}
		err = post(client, base+"/api/v1/reset", map[string]any{"confirm": true})
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: oceanctl [-addr host:port] <run-once|status|freshness|schedule|cleanup|reset> [flags]")
}

func get(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func post(client *http.Client, url string, body map[string]any) error {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return printResponse(resp)
}

// printResponse pretty-prints the JSON body and maps non-2xx statuses to
// a non-zero exit through the returned error.
func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(data))
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return nil
}
