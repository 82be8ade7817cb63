package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chachabrian/rescuelink-backend/internal/authflow"
	"github.com/chachabrian/rescuelink-backend/internal/logger"
	"github.com/chachabrian/rescuelink-backend/internal/prefs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const keyToken = "token"

// app holds what every subcommand needs once flags are resolved.
type app struct {
	v     *viper.Viper
	store *prefs.Store
	flow  *authflow.Flow
	log   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "responderctl",
		Short:        "Sign in to RescueLink from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "RescueLink API base URL")
	flags.String("prefs", defaultPrefsPath(), "path of the local preferences database")
	flags.Duration("timeout", 15*time.Second, "request timeout")
	flags.Bool("verbose", false, "log requests to stderr")
	flags.String("config", "", "config file (default $HOME/.responderctl.yaml)")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("RESPONDERCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newUnreadCmd(a),
	)
	return root
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "responderctl.db"
	}
	return filepath.Join(home, ".responderctl.db")
}

func (a *app) init() error {
	if cfg := a.v.GetString("config"); cfg != "" {
		a.v.SetConfigFile(cfg)
	} else {
		a.v.SetConfigName(".responderctl")
		a.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if a.v.GetBool("verbose") {
		log, err := logger.New(true)
		if err != nil {
			return err
		}
		a.log = log
	} else {
		a.log = zap.NewNop()
	}

	store, err := prefs.Open(a.v.GetString("prefs"))
	if err != nil {
		return err
	}
	a.store = store

	client := authflow.NewClient(a.v.GetString("server"), a.v.GetDuration("timeout"), a.log)
	a.flow = authflow.New(client, store, a.log)
	return nil
}

func newLoginCmd(a *app) *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request a code by email and verify it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			if restored, err := a.flow.Restore(ctx); err == nil && restored {
				fmt.Fprintf(out, "Already signed in as %s\n", a.flow.View().Email)
				return nil
			}

			if email == "" {
				var err error
				if email, err = prompt(out, in, "Email: "); err != nil {
					return err
				}
			}
			a.flow.SetEmail(email)
			if err := a.flow.SendOTP(ctx); err != nil {
				return err
			}

			v := a.flow.View()
			fmt.Fprintln(out, v.Message)
			if v.DevCode != "" {
				fmt.Fprintf(out, "Development code: %s\n", v.DevCode)
			}

			if code == "" {
				var err error
				if code, err = prompt(out, in, "Code: "); err != nil {
					return err
				}
			}
			a.flow.SetOTP(code)
			if err := a.flow.Verify(ctx); err != nil {
				return err
			}

			v = a.flow.View()
			if v.Token != "" {
				if err := a.store.Put(ctx, prefs.NamespaceAuth, keyToken, v.Token); err != nil {
					a.log.Warn("could not store token", zap.Error(err))
				}
			}
			fmt.Fprintf(out, "Signed in as %s\n", v.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&code, "code", "", "one-time code, prompted for when omitted")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in session on this device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.flow.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session remembered on this device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.store.LoadSession(cmd.Context())
			if err != nil {
				return err
			}
			if !sess.Verified {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.Email)
			return nil
		},
	}
}

func newUnreadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Inspect local unread counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts, err := a.store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(counts))
			for id := range counts {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", id, counts[id])
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bump <conversation>",
		Short: "Increment a conversation's unread counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.store.Increment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", args[0], n)
			return nil
		},
	}, &cobra.Command{
		Use:   "reset <conversation>",
		Short: "Mark a conversation read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Reset(cmd.Context(), args[0])
		},
	})
	return cmd
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
