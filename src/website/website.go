package website

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"git.carhub.se/carhub/carhub/src/auth"
	"git.carhub.se/carhub/carhub/src/config"
	"git.carhub.se/carhub/carhub/src/jobs"
	"git.carhub.se/carhub/carhub/src/logging"
	"git.carhub.se/carhub/carhub/src/templates"
	"github.com/spf13/cobra"
)

var WebsiteCommand = &cobra.Command{
	Use:   "carhub",
	Short: "Run the CarHub website",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		logging.Info().Str("env", string(config.Config.Env)).Msg("Hello, CarHub!")

		if config.Config.UsingDevSecret() {
			logging.Warn().Msg("SESSION_SECRET is not set; using the development fallback. Never do this in production.")
		}

		err := os.MkdirAll(config.Config.UploadDir, 0755)
		if err != nil {
			logging.Fatal().Err(err).Str("dir", config.Config.UploadDir).Msg("failed to create upload directory")
		}

		templates.Init()
		logging.Info().Strs("templates", templates.Names()).Msg("Templates loaded")

		startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
		store, closeStore, err := auth.OpenStore(startupCtx, config.Config)
		cancelStartup()
		if err != nil {
			logging.Fatal().Err(err).Str("store", string(config.Config.Session.Store)).Msg("failed to open session store")
		}
		defer closeStore()
		logging.Info().Str("store", string(config.Config.Session.Store)).Msg("Session store ready")

		gate := auth.NewGate(store, auth.StaticCredentials{
			Username: config.Config.Demo.Username,
			Password: config.Config.Demo.Password,
			IsAdmin:  true,
		}, auth.GateOptions{
			Cookies: auth.CookieSettings{
				Secret: config.Config.Session.Secret,
				MaxAge: config.Config.Session.MaxAge,
				Secure: config.Config.Session.CookieSecure,
			},
			StoreTimeout:    config.Config.Session.StoreTimeout,
			RefreshInterval: config.Config.Session.RefreshInterval,
		})

		backgroundJobs := jobs.Jobs{
			auth.PeriodicallyDeleteExpiredSessions(store, config.Config.Session.SweepInterval, config.Config.Session.StoreTimeout),
		}

		server := &http.Server{
			Addr:              config.Config.Addr,
			Handler:           NewWebsiteRoutes(gate, config.Config.PublicDir),
			ReadHeaderTimeout: 10 * time.Second,
		}

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

		err = serve(server, backgroundJobs, signals)
		if err != nil {
			closeStore()
			logging.Fatal().Err(err).Str("addr", config.Config.Addr).Msg("Website stopped")
		}
	},
}

/*
Serves until the first signal arrives or the listener fails, then shuts down
the server and the background jobs together. A second signal kills the
process. Returns the listener's error if that is what stopped it.
*/
func serve(server *http.Server, backgroundJobs jobs.Jobs, signals <-chan os.Signal) error {
	var wg sync.WaitGroup
	wg.Add(2)

	listenErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Serving the website")
		serverErr := server.ListenAndServe()
		if !errors.Is(serverErr, http.ErrServerClosed) {
			logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			listenErr <- serverErr
		}
		// The wg.Done() happens in the shutdown logic below.
	}()

	go func() {
		// Wait for the first signal (start shutdown), or a dead listener
		select {
		case <-signals:
		case err := <-listenErr:
			listenErr <- err
		}
		logging.Info().Msg("Shutting down the website")

		const timeout = 10 * time.Second

		go func() {
			logging.Info().Msg("Shutting down background jobs...")
			unfinished := backgroundJobs.CancelAndWait(timeout)
			if len(unfinished) == 0 {
				logging.Info().Msg("Background jobs closed gracefully")
			} else {
				logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
			}
			wg.Done()
		}()

		// Gracefully shut down the HTTP server
		go func() {
			timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			err := server.Shutdown(timeoutCtx)
			if err != nil {
				logging.Warn().Err(err).Msg("Server did not shut down gracefully")
			}
			wg.Done()
		}()

		<-signals // Second signal (force quit)
		logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the website")
		os.Exit(1)
	}()

	// Wait for all of the above to finish
	wg.Wait()

	select {
	case err := <-listenErr:
		return err
	default:
		return nil
	}
}
