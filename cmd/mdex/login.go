package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kerbaras/mdex/pkg/auth"
	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to MangaDex",
	Long: `Log in with your MangaDex account. The password is prompted for, or read
from the first line of stdin when it is not a terminal. The refresh token is
kept in the system keyring.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(os.Stdin)
		if err != nil {
			return err
		}

		client := newClient()
		if err := auth.Login(cmd.Context(), client, args[0], password); err != nil {
			if errors.Is(err, mangadex.ErrAuthentication) {
				return errors.New("invalid username or password")
			}
			return err
		}
		fmt.Printf("Logged in as %s\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved MangaDex session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.DeleteToken(); err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in MangaDex user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if err := auth.Restore(cmd.Context(), client); err != nil {
			return err
		}
		user, err := client.GetUser(cmd.Context(), "me")
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", user.Username, user.ID)
		if len(user.Roles) > 0 {
			fmt.Printf("roles: %s\n", strings.Join(user.Roles, ", "))
		}
		return nil
	},
}

func readPassword(in *os.File) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
