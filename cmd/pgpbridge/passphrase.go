package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/pgp-bridge/pinentry"
)

func init() {
	rootCmd.AddCommand(passphraseCmd)
	passphraseCmd.AddCommand(passphraseSetCmd, passphraseForgetCmd)
}

var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Manage loopback passphrases in the OS keyring",
	Long: "Loopback pinentry reads passphrases from the OS keyring. Entries are keyed by\n" +
		"key fingerprint; omit the fingerprint for symmetric encryption.",
}

var passphraseSetCmd = &cobra.Command{
	Use:   "set [fingerprint]",
	Short: "Store a passphrase",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := readPassphrase(cmd)
		if err != nil {
			return err
		}
		if pass == "" {
			return fmt.Errorf("empty passphrase")
		}
		if err := pinentry.Store(cfg.KeyringService, firstArg(args), pass); err != nil {
			return fmt.Errorf("store passphrase: %w", err)
		}
		log.Info("passphrase stored")
		return nil
	},
}

var passphraseForgetCmd = &cobra.Command{
	Use:   "forget [fingerprint]",
	Short: "Remove a stored passphrase",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pinentry.Forget(cfg.KeyringService, firstArg(args)); err != nil {
			return fmt.Errorf("forget passphrase: %w", err)
		}
		return nil
	},
}

// readPassphrase prompts without echo on a terminal and reads one line
// from stdin otherwise.
func readPassphrase(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Passphrase: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
