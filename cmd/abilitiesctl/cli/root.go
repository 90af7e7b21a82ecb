// Package cli implements the abilitiesctl operator commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/catalog"
	"github.com/odyssey-erp/abilities/jobs"
)

// ErrDenied is returned by the check command when the ability is not granted.
var ErrDenied = errors.New("abilitiesctl: denied")

// Authorizer answers ability checks against live storage.
type Authorizer interface {
	AuthorizeCode(ctx context.Context, userID int64, code string, tenantID *int64) (bool, error)
	UserClosure(ctx context.Context, userID int64, tenantID *int64) (ability.Closure, *int64, error)
}

// Enqueuer submits reconciliation jobs to the worker.
type Enqueuer interface {
	EnqueueReconcileTenant(ctx context.Context, tenantID int64) (*asynq.TaskInfo, error)
	EnqueueReconcileAll(ctx context.Context) (*asynq.TaskInfo, error)
}

// Runtime is the set of live dependencies a command may use.
type Runtime struct {
	Reconciler jobs.Reconciler
	Authorizer Authorizer
	Enqueuer   Enqueuer
	Queue      QueueInspector
	Close      func() error
}

// Options configures the command tree. Connect and Migrate are only invoked by
// commands that need storage.
type Options struct {
	Stdout      io.Writer
	Stderr      io.Writer
	CatalogPath string
	LoadCatalog func(path string) (*catalog.Catalog, error)
	Connect     func(ctx context.Context) (*Runtime, error)
	Migrate     func() error
}

// NewRootCommand builds the abilitiesctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.LoadCatalog == nil {
		opts.LoadCatalog = catalog.Load
	}
	root := &cobra.Command{
		Use:           "abilitiesctl",
		Short:         "Operate the tenant ability and role engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	root.AddCommand(
		newCatalogCommand(&opts),
		newReconcileCommand(&opts),
		newCheckCommand(&opts),
		newMigrateCommand(&opts),
		newJobsCommand(&opts),
	)
	return root
}

// Exit codes returned by Execute.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitDenied = 10
)

// Execute runs the command tree and maps the outcome to a process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrDenied):
		return ExitDenied
	default:
		_, _ = fmt.Fprintf(root.ErrOrStderr(), "abilitiesctl: %v\n", err)
		return ExitError
	}
}

func connect(ctx context.Context, opts *Options) (*Runtime, error) {
	if opts.Connect == nil {
		return nil, errors.New("abilitiesctl: storage not configured")
	}
	return opts.Connect(ctx)
}

func closeRuntime(rt *Runtime) {
	if rt != nil && rt.Close != nil {
		_ = rt.Close()
	}
}

func newMigrateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Migrate == nil {
				return errors.New("abilitiesctl: migrations not configured")
			}
			if err := opts.Migrate(); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}
