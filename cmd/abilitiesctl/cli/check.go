package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newCheckCommand(opts *Options) *cobra.Command {
	var (
		userID   int64
		tenantID int64
		code     string
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a user holds an ability, or list what the user holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("check: --user is required")
			}
			if !list && code == "" {
				return errors.New("check: pass --ability or --list")
			}
			var tenant *int64
			if tenantID > 0 {
				tenant = &tenantID
			}
			rt, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeRuntime(rt)

			if list {
				closure, bound, err := rt.Authorizer.UserClosure(cmd.Context(), userID, tenant)
				if err != nil {
					return err
				}
				scope := "global"
				if bound != nil {
					scope = "tenant " + strconv.FormatInt(*bound, 10)
				}
				if closure.All() {
					cmd.Printf("user %d (%s): all abilities\n", userID, scope)
					return nil
				}
				cmd.Printf("user %d (%s): %s\n", userID, scope, strings.Join(closure.Held().Sorted(), ", "))
				return nil
			}

			allowed, err := rt.Authorizer.AuthorizeCode(cmd.Context(), userID, code, tenant)
			if err != nil {
				return err
			}
			if !allowed {
				cmd.Printf("denied: user %d lacks %s\n", userID, code)
				return ErrDenied
			}
			cmd.Printf("allowed: user %d holds %s\n", userID, code)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant context (defaults to the user's home tenant)")
	cmd.Flags().StringVar(&code, "ability", "", "ability code, pipe-delimited alternatives allowed")
	cmd.Flags().BoolVar(&list, "list", false, "list the abilities the user holds instead of checking one")
	return cmd
}
