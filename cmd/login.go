package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/apigatehq/apigate-cli/pkg/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loginCmd creates the command for logging in to the Apigate server.
func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the Apigate server",
		Long:  "Login to the Apigate server using your email and password",
		Run: func(cmd *cobra.Command, args []string) {
			email := promptForInput("Email: ")
			if err := validation.ValidateEmail(email); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			password := promptForPassword("Password: ")
			if err := validation.ValidateNonEmptyString("password", password); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}

			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			profile, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				cmd.PrintErrln("Error: Failed to login. Please check your credentials and try again.")
				return
			}
			if profile != nil {
				cmd.Printf("Logged in as %s.\n", profile.Email)
			} else {
				cmd.Println("Login was successful.")
			}
		},
	}

	return cmd
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(prompt string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt)
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println("Error: Failed to read input.")
		os.Exit(1)
	}
	return strings.TrimSpace(input)
}

// promptForPassword prompts the user for a password without echoing it.
func promptForPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Println("Error: Failed to read password.")
		os.Exit(1)
	}
	fmt.Println()
	return strings.TrimSpace(string(password))
}
