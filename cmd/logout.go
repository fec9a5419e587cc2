package cmd

import (
	"github.com/spf13/cobra"
)

// logoutCmd creates the command that ends the current session. The local
// credentials are always cleared, even when the server cannot be reached.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c.Logout(cmd.Context())
			cmd.Println("Logged out.")
		},
	}
}
