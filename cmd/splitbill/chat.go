package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/internal/cli"
	"github.com/aretw0/splitbill/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Split a bill in the terminal",
	Long: `Runs the conversation on stdin/stdout. Buttons are numbered; type /help for commands.
With --json every input line is an event and every reply a JSON object.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, cleanup, err := buildEngine(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		actor, _ := cmd.Flags().GetString("actor")
		var run func(context.Context) error
		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			run = (&cli.JSONLines{Engine: engine, ActorID: actor, In: os.Stdin, Out: os.Stdout}).Run
		} else {
			interactive := term.IsTerminal(int(os.Stdout.Fd()))
			if interactive {
				tui.PrintBanner(os.Stdout, splitbill.Version)
			}
			run = cli.NewTerminalChat(engine, actor, outDir, interactive, logger).Run
		}

		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("out", ".", "Directory for the exported table and chart")
	chatCmd.Flags().String("actor", "terminal", "Actor id of the conversation")
	chatCmd.Flags().Bool("json", false, "Read events and write replies as JSON Lines")
}
