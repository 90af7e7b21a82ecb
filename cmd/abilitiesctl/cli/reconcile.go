package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCommand(opts *Options) *cobra.Command {
	var (
		tenantID int64
		all      bool
		async    bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile synthesized roles for one tenant or every tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (tenantID > 0) {
				return errors.New("reconcile: pass exactly one of --tenant or --all")
			}
			rt, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			if async {
				if rt.Enqueuer == nil {
					return errors.New("reconcile: job queue not configured")
				}
				if all {
					info, err := rt.Enqueuer.EnqueueReconcileAll(cmd.Context())
					if err != nil {
						return err
					}
					cmd.Printf("enqueued %s (%s)\n", info.Type, info.ID)
					return nil
				}
				info, err := rt.Enqueuer.EnqueueReconcileTenant(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
				cmd.Printf("enqueued %s (%s)\n", info.Type, info.ID)
				return nil
			}

			if all {
				res, err := rt.Reconciler.ReconcileAll(cmd.Context())
				cmd.Printf("reconciled %d tenants, %d failed\n", res.Tenants-len(res.Failed), len(res.Failed))
				if err != nil {
					return fmt.Errorf("reconcile: failed tenants %v: %w", res.Failed, err)
				}
				return nil
			}
			if err := rt.Reconciler.ReconcileTenant(cmd.Context(), tenantID); err != nil {
				return err
			}
			cmd.Printf("reconciled tenant %d\n", tenantID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id to reconcile")
	cmd.Flags().BoolVar(&all, "all", false, "reconcile every tenant")
	cmd.Flags().BoolVar(&async, "async", false, "enqueue the reconciliation for the worker instead of running it here")
	return cmd
}
