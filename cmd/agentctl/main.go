// Command agentctl queries and steers a running agentsim through its
// status API.
//
//	agentctl [-addr URL] status
//	agentctl [-addr URL] agents
//	agentctl [-addr URL] lanes
//	agentctl [-addr URL] diagnostics [limit]
//	agentctl [-addr URL] goal <agent-id> <x> <y> [yaw]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/api"
)

var (
	addr    = flag.String("addr", "http://localhost:8080", "Base URL of the agentsim status API")
	timeout = flag.Duration("timeout", 5*time.Second, "Request timeout")
)

// execute runs one subcommand and writes its JSON result to out.
func execute(ctx context.Context, c *api.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command")
	}
	var (
		result interface{}
		err    error
	)
	switch args[0] {
	case "status":
		result, err = c.Status(ctx)
	case "agents":
		result, err = c.Agents(ctx)
	case "lanes":
		result, err = c.Lanes(ctx)
	case "diagnostics":
		limit := 20
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil || limit < 1 {
				return fmt.Errorf("invalid limit %q", args[1])
			}
		}
		result, err = c.Diagnostics(ctx, limit)
	case "goal":
		if len(args) < 4 || len(args) > 5 {
			return fmt.Errorf("usage: goal <agent-id> <x> <y> [yaw]")
		}
		id, perr := agent.ParseID(args[1])
		if perr != nil {
			return fmt.Errorf("invalid agent id: %w", perr)
		}
		var coords [3]float64
		for i, s := range args[2:] {
			if coords[i], perr = strconv.ParseFloat(s, 64); perr != nil {
				return fmt.Errorf("invalid coordinate %q: %w", s, perr)
			}
		}
		result, err = c.SetGoal(ctx, id, api.GoalRequest{X: coords[0], Y: coords[1], Yaw: coords[2]})
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: agentctl [flags] status|agents|lanes|diagnostics [limit]|goal <id> <x> <y> [yaw]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := execute(ctx, api.NewClient(*addr, nil), flag.Args(), os.Stdout); err != nil {
		log.Printf("agentctl: %v", err)
		cancel()
		os.Exit(1)
	}
}
