// Command squadbot runs the squad coordination service: the webhook
// gateway, the conversation router, and the background autosave and
// ticket-expiry tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cyberguard/squadbot/internal/bot"
	"github.com/cyberguard/squadbot/internal/config"
	"github.com/cyberguard/squadbot/internal/gateway"
	"github.com/cyberguard/squadbot/internal/observability"
	"github.com/cyberguard/squadbot/internal/services"
	"github.com/cyberguard/squadbot/internal/store"
	"github.com/cyberguard/squadbot/internal/sysutil"
	"github.com/cyberguard/squadbot/internal/transport"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "squadbot",
	Short: "Hierarchical squad coordination service",
	Long: `squadbot coordinates a tiered squad through two workflows: missions
(broadcast directives with approval gating and completion tracking) and
tickets (member-to-command support dialogs). State lives in a JSON
snapshot; inbound updates arrive on an HTTP webhook and outbound messages
go through a chat gateway.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and background tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func main() {
	_ = godotenv.Load()
	rootCmd.AddCommand(serveCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	st := store.New(cfg.AdminIDs, cfg.MaxRecentMissions)
	persist := store.NewPersistence(st, cfg.SnapshotPath, cfg.SnapshotBackupPath)
	persist.Load()

	tx := transport.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayToken, cfg.SendTimeout)
	dispatch := services.NewDispatcher(tx, st, cfg.RateRPS, cfg.RateBurst)
	members := services.NewMemberService(st, cfg.MaxCallsignLen)
	missions := services.NewMissionService(st, dispatch, cfg.MaxMissionNameLen)
	tickets := services.NewTicketService(st, dispatch, cfg.TicketTimeout)
	router := bot.New(st, members, missions, tickets, dispatch, persist)

	srv := gateway.NewServer(cfg, router)

	// Background tasks: periodic snapshot save (with a final save on
	// shutdown) and the hourly ticket-expiry sweep.
	go persist.Run(ctx, cfg.AutosaveInterval)
	go sweepLoop(ctx, tickets, persist, cfg.TicketSweepEvery)

	notifyAdmins(ctx, cfg, st, dispatch)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	return nil
}

// sweepLoop force-closes inactive tickets on a fixed interval and persists
// once per non-empty batch.
func sweepLoop(ctx context.Context, tickets *services.TicketService, persist *store.Persistence, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := tickets.Sweep(ctx); n > 0 {
				log.Info().Int("closed", n).Msg("expired tickets closed")
				if err := persist.Save(); err != nil {
					log.Error().Err(err).Msg("snapshot save failed after sweep")
				}
			}
		}
	}
}

// notifyAdmins tells the admin allow-list the service is up, with the
// current active-ticket load.
func notifyAdmins(ctx context.Context, cfg config.Config, st *store.Store, dispatch *services.Dispatcher) {
	open, inProgress := st.TicketCounts()
	text := fmt.Sprintf(
		"🟢 Squad coordination system is now online!\nVersion: %s\nActive tickets: %d",
		version, open+inProgress)
	for _, admin := range cfg.AdminIDs {
		dispatch.Send(ctx, admin, text, nil) //nolint:errcheck
	}
}
