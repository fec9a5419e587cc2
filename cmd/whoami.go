package cmd

import (
	"errors"

	"github.com/apigatehq/apigate-cli/auth"
	"github.com/apigatehq/apigate-cli/pkg/clierr"
	"github.com/spf13/cobra"
)

// whoamiCmd creates the command that shows the authenticated profile.
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		Run: func(cmd *cobra.Command, args []string) {
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			profile, err := c.Me(cmd.Context())
			if err != nil {
				if errors.Is(err, auth.ErrNotLoggedIn) || errors.Is(err, auth.ErrSessionExpired) {
					cmd.PrintErrln("Error:", clierr.New(clierr.Auth, "not logged in, please run 'apigate login' first", err))
				} else {
					cmd.PrintErrln("Error:", clierr.New(clierr.Internal, "failed to fetch profile: "+err.Error(), err))
				}
				return
			}
			cmd.Println("Email:", profile.Email)
			if profile.Name != "" {
				cmd.Println("Name:", profile.Name)
			}
			if profile.Role != "" {
				cmd.Println("Role:", profile.Role)
			}
		},
	}
}
