package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type turnHandler interface {
	HandleTurn(ctx context.Context, userID, text string) (string, error)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		userID      string
		storeDriver string
		logLevel    string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the booking assistant from the terminal",
		Long:  "Reads one message per line from stdin and prints the assistant's reply. Type /sair to quit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg := appconfig.Load()
			if storeDriver != "" {
				cfg.StoreDriver = strings.ToLower(storeDriver)
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), logLevel)

			ctx := cmd.Context()
			info, err := clinic.LoadInfoOrDefault(cfg.ClinicDataPath)
			if err != nil {
				return err
			}
			storage, err := bootstrap.OpenStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
			if err != nil {
				return err
			}
			assistant, err := bootstrap.BuildAssistant(ctx, cfg, bootstrap.AssistantDeps{
				Storage: storage,
				LLM:     llm,
				Clinic:  info,
			}, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s - conversa local como %s (/sair para encerrar)\n", info.Name, userID)
			return runChat(ctx, assistant.Orchestrator, userID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli:local", "conversation id to chat as")
	cmd.Flags().StringVar(&storeDriver, "store", "", "override STORE_DRIVER (sqlite, postgres or memory)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	return cmd
}

// runChat relays stdin lines to turns until EOF or /sair.
func runChat(ctx context.Context, turns turnHandler, userID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/sair" {
			return nil
		}
		reply, err := turns.HandleTurn(ctx, userID, text)
		if err != nil {
			fmt.Fprintf(out, "[erro: %v]\n", err)
		}
		if reply != "" {
			fmt.Fprintf(out, "%s\n", reply)
		}
	}
}
