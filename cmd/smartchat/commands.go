package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smartchat/smartchat-go/pkg/agent"
	"github.com/smartchat/smartchat-go/pkg/core"
	"github.com/smartchat/smartchat-go/pkg/server"
	usermemory "github.com/smartchat/smartchat-go/pkg/user_memory"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "smartchat",
		Short:         "Conversational assistant that recognizes returning users",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("no-color"); v {
				noColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this .env file instead of searching for one")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start an interactive conversation (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChat(cmd, envFile)
			},
		},
		&cobra.Command{
			Use:   "greet <identifier>",
			Short: "Print the greeting the assistant would open with",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAgent(cmd, envFile, func(_ context.Context, a *agent.Agent) error {
					fmt.Fprintln(cmd.OutOrStdout(), a.Greeting(args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "profile <identifier>",
			Short: "Print what the assistant knows about a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAgent(cmd, envFile, func(_ context.Context, a *agent.Agent) error {
					fmt.Fprintln(cmd.OutOrStdout(), a.ProfileSummary(args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "forget <identifier>",
			Short: "Delete everything remembered about a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAgent(cmd, envFile, func(ctx context.Context, a *agent.Agent) error {
					if err := a.Forget(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s oublié(e).\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web front",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, envFile)
			},
		},
		newConfigCmd(&envFile),
	)
	return root
}

func newConfigCmd(envFile *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings (secrets are not shown)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			showConfig(cmd, cfg)
			return nil
		},
	})
	return configCmd
}

func loadConfig(envFile string) (*core.Config, error) {
	if envFile != "" {
		return core.LoadConfigFromEnvFile(envFile)
	}
	return core.LoadConfigFromEnv()
}

// withAgent builds an agent from configuration, runs fn, and closes the agent.
// The context is cancelled on SIGINT or SIGTERM.
func withAgent(cmd *cobra.Command, envFile string, fn func(ctx context.Context, a *agent.Agent) error) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	logger := core.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := agent.NewAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			printWarning(cmd.ErrOrStderr(), "closing agent: %v", err)
		}
	}()

	if status, loadErr := a.Store().LoadStatus(); status == usermemory.LoadRecovered {
		printWarning(cmd.ErrOrStderr(), "conversation history could not be read, starting empty: %v", loadErr)
	}
	return fn(ctx, a)
}

func runChat(cmd *cobra.Command, envFile string) error {
	return withAgent(cmd, envFile, func(ctx context.Context, a *agent.Agent) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, colorize(colorBold, "smartchat - assistant avec reconnaissance automatique"))
		fmt.Fprintln(out, strings.Repeat("=", 54))
		fmt.Fprintf(out, "%d utilisateur(s) connu(s). Tapez 'profile' pour voir un profil, 'changer' pour changer d'utilisateur.\n",
			a.Store().Len())
		return runLoop(ctx, cmd.InOrStdin(), out, a)
	})
}

func runServe(cmd *cobra.Command, envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	logger := core.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	return server.Run(ctx, addr, server.NewHandler(logger), logger)
}

func showConfig(cmd *cobra.Command, cfg *core.Config) {
	w := cmd.OutOrStdout()
	secret := func(v string) string {
		if v == "" {
			return colorize(colorRed, "missing")
		}
		return "set"
	}
	orDash := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}

	fmt.Fprintln(w, colorize(colorBold, "LLM"))
	printStatus(w, "provider", "%s", cfg.LLM.Provider)
	printStatus(w, "endpoint", "%s", orDash(cfg.LLM.Endpoint))
	printStatus(w, "model", "%s", orDash(cfg.LLM.Model))
	printStatus(w, "api key", "%s", secret(cfg.LLM.APIKey))
	printStatus(w, "max tokens", "%d", cfg.LLM.MaxTokens)
	printStatus(w, "temperature", "%.2f", cfg.LLM.Temperature)

	fmt.Fprintln(w, colorize(colorBold, "Storage"))
	printStatus(w, "provider", "%s", cfg.Storage.Provider)
	switch cfg.Storage.Provider {
	case core.StorageJSONFile, core.StorageSQLite:
		printStatus(w, "path", "%s", orDash(cfg.Storage.Path))
	default:
		printStatus(w, "address", "%s:%d", orDash(cfg.Storage.Host), cfg.Storage.Port)
		printStatus(w, "database", "%s", orDash(cfg.Storage.Database))
		printStatus(w, "password", "%s", secret(cfg.Storage.Password))
	}
	if cfg.Storage.Provider != core.StorageJSONFile {
		printStatus(w, "table", "%s", cfg.Storage.Table)
	}

	fmt.Fprintln(w, colorize(colorBold, "Agent"))
	printStatus(w, "context exchanges", "%d", cfg.Agent.ContextExchanges)
	printStatus(w, "log level", "%s", cfg.Log.Level)
	printStatus(w, "server port", "%d", cfg.Server.Port)

	if err := cfg.Validate(); err != nil {
		printWarning(w, "%v", err)
	}
}
