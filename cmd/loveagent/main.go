package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiwangfds/love-agent/internal/profile"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/plugin/ai/agent"
	"github.com/weiwangfds/love-agent/plugin/ai/vector"
	"github.com/weiwangfds/love-agent/server"
	"github.com/weiwangfds/love-agent/store"
	"github.com/weiwangfds/love-agent/store/db"
)

const version = "0.1.0"

const greetingBanner = `
---
love-agent
---
`

var rootCmd = &cobra.Command{
	Use:   "loveagent",
	Short: "A chat reply assistant for one-on-one conversations",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			return
		}

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}
		if err := dbDriver.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			return
		}
		storeInstance := store.New(dbDriver, instanceProfile)

		provider := ai.NewProvider(ai.ConfigFromProfile(instanceProfile))
		if !instanceProfile.IsAIEnabled() {
			slog.Warn("no completion service API key configured, turns will fail until one is set")
		}

		// PostgreSQL serves vector retrieval through pgvector; SQLite falls
		// back to the in-memory overlap index.
		var vectorService vector.Service
		if instanceProfile.Driver == "postgres" {
			vectorService = vector.NewStoreService(storeInstance.GetDriver(), provider)
		} else {
			vectorService = vector.NewMockService()
		}

		orchestrator := agent.NewOrchestrator(storeInstance, provider, vectorService, instanceProfile.AIVisionModel)

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, orchestrator)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c
			slog.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			cancel()
		}

		<-ctx.Done()
	},
}

func printGreetings(p *profile.Profile) {
	fmt.Print(greetingBanner)
	fmt.Printf("version %s, mode %q, driver %q\n", p.Version, p.Mode, p.Driver)
	fmt.Printf("listening on %s:%d\n", p.Addr, p.Port)
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8230)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("loveagent")
	viper.AutomaticEnv()

	// Optional config file next to the binary or in the working directory.
	viper.SetConfigName("loveagent")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
