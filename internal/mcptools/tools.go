// Package mcptools exposes the tuner as Model Context Protocol tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"fantasy-backtest/internal/analysis"
	"fantasy-backtest/internal/data"
	"fantasy-backtest/internal/logger"
	"fantasy-backtest/internal/model"
	"fantasy-backtest/internal/tuner"
)

type PlayerArgs struct {
	Player string `json:"player" jsonschema:"Player name as it appears in the roster (required)"`
}

type OptimizeArgs struct {
	Player string `json:"player" jsonschema:"Player name as it appears in the roster (required)"`
	Save   bool   `json:"save,omitempty" jsonschema:"Store the optimized weights as the player's override"`
	Seed   int64  `json:"seed,omitempty" jsonschema:"Optimizer seed (0 = configured)"`
}

type WeightsArgs struct {
	Player string `json:"player,omitempty" jsonschema:"Player name; empty for the global weights"`
}

type RankArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"How many players to return (default 10)"`
}

type NoArgs struct{}

// ToolInfo is a registered tool, listed by the server's index page.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewServer registers the tools over a fixed history.
func NewServer(t *tuner.Tuner, games []model.GameContext, roster []data.RosterEntry, version string) (*mcp.Server, []ToolInfo) {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fantasy-backtest-mcp",
			Version: version,
		},
		nil,
	)
	registry := make([]ToolInfo, 0, 8)
	names := data.RosterNames(roster)

	addTool(server, &registry, &mcp.Tool{
		Name:        "backtest_player",
		Description: "Backtest a player's stored factor weights over their game history",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerArgs) (*mcp.CallToolResult, any, error) {
		if args.Player == "" {
			return toolError(fmt.Errorf("player is required")), nil, nil
		}
		pr := t.RunPlayer(ctx, uuid.NewString(), args.Player, games, tuner.Options{})
		if pr.Err != nil {
			return toolError(pr.Err), nil, nil
		}
		return toolJSON(json.MarshalIndent(analysis.ComputeSummary(pr), "", "  "))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "optimize_player",
		Description: "Search factor weights that maximize a player's prediction accuracy",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args OptimizeArgs) (*mcp.CallToolResult, any, error) {
		if args.Player == "" {
			return toolError(fmt.Errorf("player is required")), nil, nil
		}
		tn := t
		if args.Seed != 0 {
			s := t.Optimizer().Settings()
			s.Seed = args.Seed
			tn = t.WithOptimizer(t.Optimizer().WithSettings(s))
		}
		pr := tn.RunPlayer(ctx, uuid.NewString(), args.Player, games, tuner.Options{Optimize: true})
		if pr.Err != nil {
			return toolError(pr.Err), nil, nil
		}
		if pr.Optimization == nil {
			return toolError(fmt.Errorf("not enough games to optimize %s", args.Player)), nil, nil
		}
		out := map[string]any{
			"player":      pr.Player,
			"accuracy":    pr.Optimization.Accuracy,
			"improvement": pr.Improvement(),
			"weights":     pr.Optimization.Weights.Ranked(),
			"saved":       false,
		}
		if args.Save {
			if err := t.Weights().Save(args.Player, pr.Optimization.Weights); err != nil {
				return toolError(err), nil, nil
			}
			logger.WithPlayer(args.Player).WithField("component", "mcp").Info("saved optimized weights")
			out["saved"] = true
		}
		return toolJSON(json.MarshalIndent(out, "", "  "))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "get_weights",
		Description: "Show the factor weights that apply to a player, or the global weights",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args WeightsArgs) (*mcp.CallToolResult, any, error) {
		w := t.Weights().Load(args.Player)
		return toolJSON(json.MarshalIndent(map[string]any{
			"player":   args.Player,
			"override": args.Player != "" && t.Weights().HasOverride(args.Player),
			"weights":  w.Ranked(),
		}, "", "  "))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "rank_players",
		Description: "Rank roster players by backtest accuracy with their current weights",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RankArgs) (*mcp.CallToolResult, any, error) {
		report, err := t.Run(ctx, games, names, tuner.Options{})
		if err != nil {
			return toolError(err), nil, nil
		}
		ranked := analysis.RankByAccuracy(report.Players)
		summary := analysis.Summarize(ranked)
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}
		if limit < len(ranked) {
			ranked = ranked[:limit]
		}
		return toolJSON(json.MarshalIndent(map[string]any{
			"rankings": ranked,
			"summary":  summary,
		}, "", "  "))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "list_factors",
		Description: "List the factor scorers and their default weights",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args NoArgs) (*mcp.CallToolResult, any, error) {
		return toolJSON(json.MarshalIndent(t.Engine().Scorer().Provider().Describe(), "", "  "))
	})

	return server, registry
}

func addTool[T any](server *mcp.Server, registry *[]ToolInfo, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, any, error)) {
	*registry = append(*registry, ToolInfo{Name: tool.Name, Description: tool.Description})
	mcp.AddTool(server, tool, handler)
}

func toolJSON(res []byte, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(res)},
		},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
