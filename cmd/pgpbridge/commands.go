package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/pgp-bridge/resource"
)

func init() {
	rootCmd.AddCommand(infoCmd, opsCmd, importCmd, keyCmd, encryptCmd, decryptCmd,
		signCmd, verifyCmd, deleteCmd, flagCmd)

	keyCmd.Flags().Bool("secret", false, "require secret key material")

	encryptCmd.Flags().StringSliceP("recipient", "r", nil, "recipient fingerprint (repeatable)")
	encryptCmd.Flags().StringSlice("flag", nil, "encrypt flag: always_trust, no_compress, symmetric, ...")
	encryptCmd.Flags().BoolP("sign", "s", false, "sign with the first usable secret key")
	encryptCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	decryptCmd.Flags().Bool("verify", false, "verify an embedded signature")
	decryptCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	signCmd.Flags().StringP("mode", "m", "normal", "signature mode: normal, detached, clear")
	signCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	deleteCmd.Flags().Bool("secret", false, "also delete secret key material")

	flagCmd.AddCommand(flagGetCmd, flagSetCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show engine information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			v, err := s.call(ctx, "engine_info", s.ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List bridge operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			for _, name := range s.rt.Operations() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Import keys from files or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"-"}
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			for _, path := range args {
				data, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				v, err := s.call(ctx, "import", s.ctx, data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := printJSON(cmd, v); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var keyCmd = &cobra.Command{
	Use:   "key <fingerprint>",
	Short: "Show a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetBool("secret")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			key, err := s.key(ctx, args[0], secret)
			if err != nil {
				return err
			}
			v, err := s.call(ctx, "key_info", key)
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [file]",
	Short: "Encrypt to recipients",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fprs, _ := cmd.Flags().GetStringSlice("recipient")
		flags, _ := cmd.Flags().GetStringSlice("flag")
		sign, _ := cmd.Flags().GetBool("sign")
		output, _ := cmd.Flags().GetString("output")

		plaintext, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := applyMode(ctx, s); err != nil {
				return err
			}
			recipients := make([]resource.Handle, 0, len(fprs))
			for _, fpr := range fprs {
				k, err := s.key(ctx, fpr, false)
				if err != nil {
					return err
				}
				recipients = append(recipients, k)
			}
			op := "encrypt_with_flags"
			if sign {
				op = "sign_and_encrypt_with_flags"
			}
			v, err := s.call(ctx, op, s.ctx, handleArgs(recipients), plaintext, symbols(flags))
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, v.(string))
		})
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [file]",
	Short: "Decrypt a message",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verify, _ := cmd.Flags().GetBool("verify")
		output, _ := cmd.Flags().GetString("output")

		ciphertext, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			var flags []string
			if verify {
				flags = append(flags, "verify")
			}
			v, err := s.call(ctx, "decrypt_with_flags", s.ctx, ciphertext, symbols(flags))
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, v.(string))
		})
	},
}

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Sign data with the first usable secret key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		output, _ := cmd.Flags().GetString("output")

		data, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := applyMode(ctx, s); err != nil {
				return err
			}
			v, err := s.call(ctx, "sign_with_mode", s.ctx, mode, data)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, v.(string))
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <signature> [data]",
	Short: "Verify a detached, inline or cleartext signature",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		var data string
		if len(args) == 2 {
			if data, err = readInput(cmd, args[1]); err != nil {
				return err
			}
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			v, err := s.call(ctx, "verify_opaque", s.ctx, sig, data)
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <fingerprint>",
	Short: "Delete a key from the keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetBool("secret")
		return withSession(cmd, func(ctx context.Context, s *session) error {
			key, err := s.key(ctx, args[0], false)
			if err != nil {
				return err
			}
			op := "delete_key"
			if secret {
				op = "delete_secret_key"
			}
			if _, err := s.call(ctx, op, s.ctx, key); err != nil {
				return err
			}
			_, err = s.call(ctx, "release", key)
			return err
		})
	},
}

var flagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Read or write engine flags",
}

var flagGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a flag value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			res, err := s.rt.GetFlag(ctx, s.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render(res))
			return nil
		})
	},
}

var flagSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a flag for one invocation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			_, err := s.call(ctx, "set_flag", s.ctx, args[0], args[1])
			return err
		})
	},
}

// applyMode pushes the configured output modes into the session context.
func applyMode(ctx context.Context, s *session) error {
	if _, err := s.call(ctx, "set_armor", s.ctx, cfg.Armor); err != nil {
		return err
	}
	_, err := s.call(ctx, "set_text_mode", s.ctx, cfg.TextMode)
	return err
}

func handleArgs(hs []resource.Handle) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
