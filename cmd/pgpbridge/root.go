package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/config"
	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/engine"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/resource"
	"github.com/wippyai/pgp-bridge/runtime"
)

var (
	configPath string
	homeDir    string
	logLevel   string
	armor      bool
	textMode   bool

	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "pgpbridge",
	Short:         "OpenPGP operations over handle-based contexts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if homeDir != "" {
			c.HomeDir = homeDir
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		if cmd.Flags().Changed("armor") {
			c.Armor = armor
		}
		if cmd.Flags().Changed("text") {
			c.TextMode = textMode
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		return setupLogging(c)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default $"+config.EnvPath+" or ~/.pgpbridge/config.yaml)")
	pf.StringVar(&homeDir, "home", "", "keyring home directory")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVarP(&armor, "armor", "a", false, "produce ASCII armored output")
	pf.BoolVarP(&textMode, "text", "t", false, "sign and encrypt in text mode")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(c *config.Config) error {
	lvl, err := c.Level()
	if err != nil {
		return err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	log = l
	runtime.SetLogger(l.Named("runtime"))
	dispatch.SetLogger(l.Named("dispatch"))
	engine.SetLogger(l.Named("engine"))
	return nil
}

// session is a runtime with one open OpenPGP context.
type session struct {
	rt  *runtime.Runtime
	ctx resource.Handle
}

func openSession(ctx context.Context) (*session, error) {
	rt := runtime.New(engine.New(cfg.EngineOptions()), runtime.Options{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	})
	res, err := rt.FromProtocol(ctx, "open_pgp")
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open context: %w", err)
	}
	return &session{rt: rt, ctx: res.Value.(resource.Handle)}, nil
}

func (s *session) Close() error {
	return s.rt.Close()
}

// call runs an operation and turns a failed envelope into an error.
func (s *session) call(ctx context.Context, name string, args ...any) (any, error) {
	res, err := s.rt.Call(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	if !res.IsOK() {
		return nil, fmt.Errorf("%s: %w", name, res.Err())
	}
	return res.Value, nil
}

// key resolves a fingerprint to a key handle.
func (s *session) key(ctx context.Context, fingerprint string, secret bool) (resource.Handle, error) {
	op := "find_key"
	if secret {
		op = "find_secret_key"
	}
	v, err := s.call(ctx, op, s.ctx, fingerprint)
	if err != nil {
		return 0, err
	}
	return v.(resource.Handle), nil
}

func withSession(cmd *cobra.Command, fn func(context.Context, *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(ctx, s)
}

// readInput returns the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, path string, data string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), data)
		return err
	}
	return os.WriteFile(path, []byte(data), 0o600)
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func symbols(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = codec.Atom(n)
	}
	return out
}

// render formats an envelope for display.
func render(res envelope.Result) string {
	if !res.IsOK() {
		return res.String()
	}
	switch v := res.Value.(type) {
	case string:
		return v
	case codec.Atom, resource.Handle, bool:
		return fmt.Sprint(v)
	}
	out, err := json.MarshalIndent(res.Value, "", "  ")
	if err != nil {
		return fmt.Sprint(res.Value)
	}
	return string(out)
}
