package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/splitbill/internal/adapters/discord"
	"github.com/spf13/cobra"
)

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Run the Discord bot",
	Long:  `Connects to the Discord gateway with discord.token. Users start with "<prefix>split" and leave with "<prefix>cancel".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Discord.Token == "" {
			return errors.New("discord.token is not set (SPLITBILL_DISCORD_TOKEN)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, cleanup, err := buildEngine(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer cleanup()
		go engine.RunJanitor(ctx, cfg.Session.SweepInterval)

		bot, err := discord.New(cfg.Discord.Token, engine,
			discord.WithLogger(logger),
			discord.WithCommandPrefix(cfg.Discord.CommandPrefix),
		)
		if err != nil {
			return err
		}
		if err := bot.Start(); err != nil {
			return err
		}
		logger.Info("Discord bot is running", "prefix", cfg.Discord.CommandPrefix)

		<-ctx.Done()
		logger.Info("Stopping Discord bot")
		return bot.Stop()
	},
}

func init() {
	rootCmd.AddCommand(discordCmd)
}
