package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resume-roaster/internal/apikey"
	"resume-roaster/internal/extract"
	"resume-roaster/internal/roast"
	"resume-roaster/internal/session"
	"resume-roaster/internal/shared/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run <resume.{pdf,doc,docx,txt}>",
	Short: "Roast a résumé file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		level, err := roast.ParseSpiciness(viper.GetString("spiciness"))
		if err != nil && viper.GetString("spiciness") != "" {
			return err
		}
		opts := runOptions{
			Path:        args[0],
			Spiciness:   level,
			Interactive: !viper.GetBool("yes"),
		}
		keys, err := keyManager(config)
		if err != nil {
			return err
		}
		return runRoast(cmd.Context(), config, opts, keys, terminalUI{}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("spiciness", "s", "", "mild, spicy or extra_spicy (asked interactively when unset)")
	runCmd.Flags().BoolP("yes", "y", false, "roast once and exit without prompts")
	runCmd.Flags().String("model", "", "model identifier to request")

	_ = viper.BindPFlag("spiciness", runCmd.Flags().Lookup("spiciness"))
	_ = viper.BindPFlag("yes", runCmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("model", runCmd.Flags().Lookup("model"))
}

type runOptions struct {
	Path        string
	Spiciness   roast.Spiciness
	Interactive bool
}

// runRoast extracts the résumé, then generates roasts until the user exits.
func runRoast(ctx context.Context, config *Config, opts runOptions, keys *apikey.Manager, ui UI, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := readResume(ctx, opts.Path)
	if err != nil {
		return err
	}

	level := opts.Spiciness
	if !level.Valid() {
		level = roast.DefaultSpiciness
		if opts.Interactive {
			if level, err = ui.SelectSpiciness(level); err != nil {
				return promptErr(err)
			}
		}
	}

	gen, err := newGenerator(ctx, config, keys, ui, opts.Interactive)
	if err != nil {
		return err
	}
	notifier := session.NotifierFunc(func(n session.Notice) {
		fmt.Fprintf(out, "%s: %s\n", n.Title, n.Message)
	})
	newSession := func(gen roast.Generator, level roast.Spiciness) *session.Session {
		s := session.New(gen, session.WithSpiciness(level), session.WithNotifier(notifier))
		s.SubmitResume(text)
		return s
	}
	sess := newSession(gen, level)
	telemetry.Debug("cli.resume_loaded", map[string]any{
		"session_id": sess.ID(),
		"file_name":  filepath.Base(opts.Path),
		"mode":       config.Mode,
	})

	for {
		view := sess.Snapshot()
		fmt.Fprintf(out, "Roasting at %s...\n", view.Spiciness.Label())
		roastText, rerr := sess.RequestRoast(ctx)
		if rerr == nil {
			fmt.Fprintf(out, "\n%s\n\n", roastText)
		}
		if !opts.Interactive {
			return rerr
		}

		items := []string{PromptRegenerate, PromptChangeSpiciness}
		if config.Mode == ModeDirect && apikey.ShouldPrompt(rerr) {
			items = append([]string{PromptUpdateKey}, items...)
		}
		items = append(items, PromptExit)
		choice, err := ui.NextAction(items)
		if err != nil {
			return promptErr(err)
		}

		switch choice {
		case PromptRegenerate:
		case PromptChangeSpiciness:
			next, err := ui.SelectSpiciness(sess.Snapshot().Spiciness)
			if err != nil {
				return promptErr(err)
			}
			if err := sess.ChangeSpiciness(next); err != nil {
				return err
			}
		case PromptUpdateKey:
			key, err := ui.PromptAPIKey(ctx)
			if err != nil {
				return promptErr(err)
			}
			if err := keys.Set(key); err != nil {
				return err
			}
			if gen, err = newGenerator(ctx, config, keys, ui, true); err != nil {
				return err
			}
			sess = newSession(gen, sess.Snapshot().Spiciness)
		default:
			return nil
		}
	}
}

func readResume(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open resume: %w", err)
	}
	defer f.Close()
	text, err := extract.Extract(ctx, filepath.Base(path), f)
	if err != nil {
		return "", err
	}
	return text, nil
}

func newGenerator(ctx context.Context, config *Config, keys *apikey.Manager, ui UI, interactive bool) (roast.Generator, error) {
	opts := []roast.Option{roast.WithModel(config.Model), roast.WithTimeout(config.Timeout)}
	if config.Mode != ModeDirect {
		return roast.NewProxyClient(config.ProxyURL, opts...)
	}
	var prompter apikey.Prompter
	if interactive {
		prompter = ui
	}
	key, err := keys.Ensure(ctx, prompter)
	if err != nil {
		if interrupted(err) {
			return nil, errAborted
		}
		return nil, err
	}
	return roast.NewDirectClient(key, opts...)
}

var errAborted = errors.New("aborted")

func promptErr(err error) error {
	if interrupted(err) {
		return errAborted
	}
	return fmt.Errorf("prompt failed: %w", err)
}
