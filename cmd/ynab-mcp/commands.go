package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/eshaffer321/ynab-mcp-go/internal/config"
	"github.com/eshaffer321/ynab-mcp-go/internal/knowledge"
	"github.com/eshaffer321/ynab-mcp-go/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const (
	serverName    = "ynab"
	serverVersion = "1.0.0"
)

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "ynab-mcp",
		Short:         "YNAB Model Context Protocol server",
		Long:          "Serve YNAB budgets, accounts, categories and transactions to MCP clients over stdio, with a delta-sync cache on disk.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file in addition to .env")

	root.AddCommand(newServeCommand(&envFile))
	root.AddCommand(newKnowledgeCommand(&envFile))
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *envFile)
		},
	}
}

func newKnowledgeCommand(envFile *string) *cobra.Command {
	knowledgeCmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect or reset the server knowledge cache",
	}

	knowledgeCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print a summary of the cached server knowledge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *envFile, func(store *knowledge.Store) error {
				data, err := json.MarshalIndent(summarize(store), "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			})
		},
	})

	knowledgeCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset the cache to its empty state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *envFile, func(store *knowledge.Store) error {
				if err := store.Reset(); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", store.Path())
				return err
			})
		},
	})

	return knowledgeCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serverName, serverVersion)
		},
	}
}

func runServe(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTools(server, newYNABTools(a))

	logger.Info("Starting MCP server", "knowledge_path", a.store.Path(), "default_budget_id", a.store.DefaultBudgetID())

	// stdout carries the protocol, logs go to stderr
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// withStore opens the knowledge store without an API client
func withStore(ctx context.Context, envFile string, fn func(store *knowledge.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := knowledge.Open(ctx, knowledge.Options{
		Dir:             cfg.Knowledge.Dir,
		DefaultBudgetID: cfg.YNAB.BudgetID,
		Logger:          logger.WithComponent("knowledge"),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

func loadConfig(envFile string) (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

type budgetSummary struct {
	Accounts     int `json:"accounts"`
	Categories   int `json:"categories"`
	Transactions int `json:"transactions"`
}

type storeSummary struct {
	Path                  string                   `json:"path"`
	Degraded              bool                     `json:"degraded"`
	DefaultBudgetID       string                   `json:"default_budget_id"`
	LastKnowledgeOfServer int64                    `json:"last_knowledge_of_server"`
	BudgetIDs             []string                 `json:"budget_ids"`
	Budgets               map[string]budgetSummary `json:"budgets"`
}

func summarize(store *knowledge.Store) storeSummary {
	s := storeSummary{
		Path:                  store.Path(),
		Degraded:              store.Degraded(),
		DefaultBudgetID:       store.DefaultBudgetID(),
		LastKnowledgeOfServer: store.LastKnowledgeOfServer(),
		BudgetIDs:             []string{},
		Budgets:               map[string]budgetSummary{},
	}
	for id, snap := range store.Budgets() {
		s.BudgetIDs = append(s.BudgetIDs, id)
		s.Budgets[id] = budgetSummary{
			Accounts:     len(snap.Accounts),
			Categories:   len(snap.Categories),
			Transactions: len(snap.Transactions),
		}
	}
	sort.Strings(s.BudgetIDs)
	return s
}
