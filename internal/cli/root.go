package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"expensetrack/internal/amqp"
	"expensetrack/internal/cache"
	"expensetrack/internal/config"
	applog "expensetrack/internal/log"
	"expensetrack/internal/services"
)

// Session is what a command runs against.
type Session struct {
	Service *services.ExpenseService
	Close   func() error
}

// Opener opens a Session. Tests swap it for an in-memory store.
type Opener func(ctx context.Context) (*Session, error)

var (
	openSession Opener = OpenFromEnv
	clock              = time.Now
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// Execute runs RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

// NewRootCmd builds the expensectl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "expensectl",
		Short: "Record and summarize personal expenses",
		Long: `expensectl adds, edits and removes expenses in the configured store and
prints day-grouped lists, category summaries and CSV exports.

The store is selected with the same environment variables as the server
(DATA_BACKEND, SQLITE_DB_PATH, DATA_DIR, ...), optionally read from .env.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newEditCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newSummaryCmd(),
		newExportCmd(),
	)
	return root
}

// OpenFromEnv opens the store configured by the environment. Mutations are
// announced on AMQP when AMQP_URL is set and the broker is reachable.
func OpenFromEnv(ctx context.Context) (*Session, error) {
	LoadEnvFile()
	cfg := config.Load()
	// Logs go to stderr so stdout stays clean for command output.
	logger := SetupLogger(cfg.SlogLevel(), os.Stderr).WithComponent(applog.ComponentCLI)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers := []func() error{store.Close}

	opts := []services.Option{
		services.WithLocation(loc),
		services.WithLogger(logger),
		services.WithSummaryCache(cache.NewLRUCache[*services.SummaryView](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, changes will not be announced", applog.FieldError, err)
		} else {
			opts = append(opts, services.WithNotifier(client))
			closers = append(closers, client.Close)
		}
	}

	return &Session{
		Service: services.NewExpenseService(store, opts...),
		Close: func() error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}

// withService opens a session for the duration of run.
func withService(cmd *cobra.Command, run func(ctx context.Context, svc *services.ExpenseService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open expense store: %w", err)
	}
	defer func() {
		if sess.Close != nil {
			_ = sess.Close()
		}
	}()
	return run(ctx, sess.Service)
}
