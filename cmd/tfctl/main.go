// Command tfctl is a diagnostic CLI for querying a running tfserver over
// its JSON-over-HTTP surface.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"

	"github.com/banshee-data/tfgraph/internal/httputil"
)

// client is the HTTP client tfctl issues requests through. Tests swap in an
// httputil.MockHTTPClient so runCommand can be exercised without a live
// tfserver.
var client httputil.HTTPClient = httputil.NewStandardClient(nil)

func main() {
	var server, target, source string
	flag.StringVar(&server, "server", "http://localhost:8080", "tfserver base URL")
	flag.StringVar(&target, "target", "", "target frame")
	flag.StringVar(&source, "source", "", "source frame")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: tfctl [-server URL] <lookup|can|latest-common|frames> [-target FRAME -source FRAME]")
		os.Exit(2)
	}

	out, err := runCommand(flag.Arg(0), server, target, source)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out)
}

// runCommand dispatches one tfctl subcommand and returns its rendered
// output. Separated from main so tests can drive it against a mocked
// httputil.HTTPClient without touching flag.CommandLine or os.Exit.
func runCommand(cmd, server, target, source string) (string, error) {
	switch cmd {
	case "lookup":
		if err := requireFrames(target, source); err != nil {
			return "", err
		}
		return get(server, "/tf/lookup", url.Values{"target": {target}, "source": {source}})
	case "can":
		if err := requireFrames(target, source); err != nil {
			return "", err
		}
		return get(server, "/tf/can", url.Values{"target": {target}, "source": {source}})
	case "latest-common":
		if err := requireFrames(target, source); err != nil {
			return "", err
		}
		return get(server, "/tf/latest-common", url.Values{"target": {target}, "source": {source}})
	case "frames":
		return getPlain(server, "/debug/tf/frames")
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}

func requireFrames(target, source string) error {
	if target == "" || source == "" {
		return fmt.Errorf("-target and -source are both required for this command")
	}
	return nil
}

func get(server, path string, q url.Values) (string, error) {
	resp, err := client.Get(server + path + "?" + q.Encode())
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	pretty, _ := json.MarshalIndent(out, "", "  ")
	if resp.StatusCode >= 400 {
		return string(pretty), fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return string(pretty), nil
}

func getPlain(server, path string) (string, error) {
	resp, err := client.Get(server + path)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return string(body), fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return string(body), nil
}
