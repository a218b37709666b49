// Command mcpctl is a small command line client for a running mimir host.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/mimirmcp/mimir-host/internal/client"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

const usage = `usage: mcpctl [-url URL] [-timeout D] <command> [args]

commands:
  ping                      check the host answers JSON-RPC
  init                      run the initialize handshake
  list                      list registered tools
  call <tool> [key=value]   invoke a tool
  health                    query GET /health
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("mcpctl", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	url := fs.String("url", envOr("MIMIR_URL", "http://127.0.0.1:8080"), "Host base URL")
	timeout := fs.Duration("timeout", 60*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	c := client.New(*url, *timeout)
	ctx := context.Background()
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	switch cmd := fs.Arg(0); cmd {
	case "ping":
		start := time.Now()
		if err := c.Ping(ctx); err != nil {
			return err
		}
		green.Print("pong ")
		fmt.Println(time.Since(start).Round(time.Millisecond))
	case "init":
		info, err := c.Initialize(ctx)
		if err != nil {
			return err
		}
		green.Print("▶ ")
		fmt.Printf("%s %s (protocol %s)\n", info.ServerInfo.Name, info.ServerInfo.Version, info.ProtocolVersion)
	case "list":
		tools, err := c.ListTools(ctx)
		if err != nil {
			return err
		}
		for _, t := range tools {
			cyan.Print(t.Name)
			fmt.Printf("  %s\n", t.Description)
			if t.InputSchema == nil {
				continue
			}
			for name, p := range t.InputSchema.Properties {
				req := ""
				for _, r := range t.InputSchema.Required {
					if r == name {
						req = " (required)"
					}
				}
				color.New(color.FgHiBlack).Printf("    %s: %s%s\n", name, p.Type, req)
			}
		}
	case "call":
		if fs.NArg() < 2 {
			return errors.New("call needs a tool name")
		}
		toolArgs, err := parseArgs(fs.Args()[2:])
		if err != nil {
			return err
		}
		res, err := c.CallTool(ctx, fs.Arg(1), toolArgs)
		var rpcErr *protocol.ResponseError
		if errors.As(err, &rpcErr) {
			return fmt.Errorf("%s (code %d)", rpcErr.Message, rpcErr.Code)
		}
		if err != nil {
			return err
		}
		for _, item := range res.Content {
			switch item.Type {
			case protocol.ContentText:
				fmt.Println(item.Text)
			case protocol.ContentImage:
				cyan.Print("image ")
				fmt.Println(item.URL)
			case protocol.ContentResource:
				cyan.Print("resource ")
				fmt.Println(item.ResourceID)
			}
		}
	case "health":
		msg, err := c.Health(ctx)
		if err != nil {
			return err
		}
		green.Print("✓ ")
		fmt.Println(msg)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// parseArgs turns key=value pairs into tool arguments. Values that parse as
// JSON (numbers, booleans, null, objects) keep that type; anything else is a
// string.
func parseArgs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			out[k] = decoded
			continue
		}
		if unq, err := strconv.Unquote(v); err == nil {
			out[k] = unq
			continue
		}
		out[k] = v
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
