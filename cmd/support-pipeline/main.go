package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"support_pipeline/internal/app"
	"support_pipeline/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "support-pipeline",
		Short:         "Customer-support transcript pipeline services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run one of the pipeline services",
	}
	serve.AddCommand(
		serveCmd("audio", "Audio call upload and transcription service", app.NewAudio),
		serveCmd("chat", "Text-chat upload and summarization service", app.NewChat),
		serveCmd("scoring", "Call quality scoring service", app.NewScoring),
	)
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd(name, short string, build func(config.Config) (*app.App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			application, err := build(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return application.Run(ctx)
		},
	}
}
