package admintools

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.carhub.se/carhub/carhub/src/auth"
	"git.carhub.se/carhub/carhub/src/config"
	"git.carhub.se/carhub/carhub/src/oops"
	"git.carhub.se/carhub/carhub/src/website"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	sessionsCommand := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and clean up login sessions",
	}
	adminCommand.AddCommand(sessionsCommand)

	countCommand := &cobra.Command{
		Use:   "count",
		Short: "Count live sessions in the configured store",
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, store auth.SessionStore) error {
				return countSessions(ctx, store, os.Stdout)
			})
		},
	}
	sessionsCommand.AddCommand(countCommand)

	purgeCommand := &cobra.Command{
		Use:   "purge",
		Short: "Delete every expired session from the configured store",
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, store auth.SessionStore) error {
				return purgeSessions(ctx, store, os.Stdout)
			})
		},
	}
	sessionsCommand.AddCommand(purgeCommand)
}

func withStore(f func(ctx context.Context, store auth.SessionStore) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	store, closeStore, err := auth.OpenStore(ctx, config.Config)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	err = f(ctx, store)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		closeStore()
		os.Exit(1)
	}
}

func countSessions(ctx context.Context, store auth.SessionStore, out io.Writer) error {
	counter, ok := store.(auth.SessionCounter)
	if !ok {
		return oops.New(nil, "session store %T cannot count sessions", store)
	}

	anonymous, authenticated, err := counter.Count(ctx)
	if err != nil {
		return oops.New(err, "failed to count sessions")
	}

	fmt.Fprintf(out, "Anonymous sessions:     %d\n", anonymous)
	fmt.Fprintf(out, "Authenticated sessions: %d\n", authenticated)
	fmt.Fprintf(out, "Total:                  %d\n", anonymous+authenticated)
	return nil
}

func purgeSessions(ctx context.Context, store auth.SessionStore, out io.Writer) error {
	n, err := store.DeleteExpired(ctx)
	if err != nil {
		return oops.New(err, "failed to delete expired sessions")
	}
	fmt.Fprintf(out, "Deleted %d expired sessions\n", n)
	return nil
}
