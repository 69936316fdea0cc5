package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/bizagent/agent"
	"github.com/hupe1980/bizagent/internal/config"
	"github.com/hupe1980/bizagent/toolbox"
	"github.com/spf13/cobra"
)

const (
	salesAgentName    = "InsightBot"
	salesDefaultModel = "gemini-2.0-flash"
	salesDescription  = "A smart sales analytics assistant powered by BigQuery and MCP Toolbox. " +
		"This agent helps users explore sales performance across products, cities, stores, and salespeople. " +
		"It uses a set of predefined tools to answer business questions like: " +
		"- “Which products sell best in each city?” - “How much revenue did New York generate yesterday?” " +
		"- “What were total sales each day this week?” - “How many units of City-Slicker Loafers were sold in Boston?” " +
		"The agent interprets natural language queries, matches them to the correct SQL tool, and returns relevant insights."
	salesInstruction = "You are a helpful sales analytics assistant. Your role is to:" +
		" 1. Understand the user's question about sales data. " +
		"2. Match the question to the most appropriate tool from the available toolset. " +
		"3. Execute the tool with correct parameters (e.g., city names, product names, date ranges)." +
		" 4. Return clear and concise summaries of the results. " +
		"5. If the user’s request cannot be handled by an existing tool, politely explain the limitation and suggest what they can ask instead."
)

func newSalesCmd(opts *AppOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Answer sales questions with the tools of a toolset service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSales(cmd.Context(), *opts, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Single message to send")

	return cmd
}

func salesDefaults() config.Config {
	cfg := config.Default("sales_agent")
	cfg.Model = salesDefaultModel
	return cfg
}

func runSales(ctx context.Context, opts AppOptions, message string) error {
	a, err := setup(ctx, opts, salesDefaults())
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := newToolboxClient(a)
	if err != nil {
		return err
	}
	defer client.Close()

	ag, err := newSalesAgent(ctx, a, client)
	if err != nil {
		return err
	}

	return a.chat(ctx, a.runner(ag), chatOptions{message: message})
}

func newToolboxClient(a *app) (*toolbox.Client, error) {
	protocol, err := toolbox.ParseProtocol(a.cfg.Toolbox.Protocol)
	if err != nil {
		return nil, err
	}

	return toolbox.NewClient(a.cfg.Toolbox.URL, func(o *toolbox.Options) {
		o.Protocol = protocol
		o.Logger = a.logger
	})
}

// newSalesAgent fetches the toolset once. An unreachable service is fatal.
func newSalesAgent(ctx context.Context, a *app, client *toolbox.Client) (*agent.ModelAgent, error) {
	tools, err := client.LoadToolset(ctx, a.cfg.Toolbox.Toolset)
	if err != nil {
		return nil, fmt.Errorf("sales agent: %w", err)
	}

	return agent.NewModelAgent(salesAgentName, a.llm,
		agent.WithDescription(salesDescription),
		agent.WithInstruction(salesInstruction),
		agent.WithTools(tools...),
	)
}
