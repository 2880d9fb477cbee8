package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	stdsignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/ignition"
	"github.com/randalmurphal/ignition/health"
	"github.com/randalmurphal/ignition/internal/api"
)

// newServeCmd creates the serve command: it runs a coordinator over the
// given signals directory and streams its lifecycle events to every
// connected websocket client at /feed.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <signals-dir>",
		Short: "Run a coordinator and stream its lifecycle events over a websocket",
		Long: `Start an HTTP server that runs an ignition coordinator over the
given signals directory and fans every signalStarted/signalCompleted/
globalTimeoutReached/coordinatorCompleted event out to each client
connected to /feed.

Example:
  ignite serve signals/             # Start on default port 8088
  ignite serve signals/ --port 9000 # Start on a custom port`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetInt("port")
			addr := fmt.Sprintf(":%d", port)

			feed := api.NewFeed(nil)

			coord, err := buildCoordinator(cmd.Context(), args[0], ignition.Options{Listener: feed})
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/feed", feed)
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch coord.State() {
				case ignition.StateNotStarted, ignition.StateRunning:
					w.WriteHeader(http.StatusServiceUnavailable)
					_ = json.NewEncoder(w).Encode(map[string]string{"status": "starting"})
				default:
					report := health.Evaluate(coord.Result().Results, coord.Result().TimedOut)
					if report.Status != health.StatusHealthy {
						w.WriteHeader(http.StatusServiceUnavailable)
					} else {
						w.WriteHeader(http.StatusOK)
					}
					_ = json.NewEncoder(w).Encode(report)
				}
			})

			server := &http.Server{Addr: addr, Handler: mux}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			stdsignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nShutting down...")
				cancel()
				_ = server.Close()
			}()

			go func() {
				if _, runErr := coord.Run(ctx); runErr != nil {
					fmt.Fprintln(os.Stderr, "ignite: run finished with error:", runErr)
				}
			}()

			fmt.Printf("Starting feed server on %s (connect to ws://localhost%s/feed)...\n", addr, addr)
			fmt.Println("Press Ctrl+C to stop")

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntP("port", "p", 8088, "port to listen on")
	return cmd
}
