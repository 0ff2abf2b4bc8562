package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Apurer/pet-adoption-engine/internal/app/engine"
	sponsorports "github.com/Apurer/pet-adoption-engine/internal/domains/sponsor/ports"
	platformobservability "github.com/Apurer/pet-adoption-engine/internal/platform/observability"
)

// cli carries the engine between PersistentPreRunE and the subcommands.
type cli struct {
	verbose  bool
	sponsor  bool
	engine   *engine.Engine
	shutdown func(context.Context) error
}

// execute runs one command line and always releases the engine, also when the
// command failed and cobra skipped the post-run hooks.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.close())
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adoptctl",
		Short:         "Adopt, favorite and sign terms against the adoption API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().BoolVar(&c.sponsor, "sponsor", false, "show the sponsor interstitial before gated actions")

	root.AddCommand(
		c.signInCmd(),
		c.signOutCmd(),
		c.petsCmd(),
		c.favoriteCmd(),
		c.adoptCmd(),
		c.readoptCmd(),
		c.completeCmd(),
		c.termCmd(),
		c.donationCmd(),
		c.cacheCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := engine.LoadConfig()
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	instruments, shutdown, err := platformobservability.Init(ctx, "adoptctl",
		platformobservability.WithLogOutput(cmd.ErrOrStderr()),
		platformobservability.WithLogLevel(level),
		platformobservability.WithSpanExport(false),
		platformobservability.WithTextLogs(),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	c.shutdown = shutdown

	opts := []engine.Option{engine.WithInstruments(instruments)}
	if c.sponsor {
		opts = append(opts, engine.WithPresenter(terminalPresenter(cmd.InOrStdin(), cmd.ErrOrStderr())))
	}
	e, err := engine.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	c.engine = e
	return nil
}

func (c *cli) close() error {
	var err error
	if c.engine != nil {
		err = c.engine.Close()
		c.engine = nil
	}
	if c.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.shutdown(ctx)
		c.shutdown = nil
	}
	return err
}

// currentUser is the signed-in user, for commands that act on their behalf.
func (c *cli) currentUser(ctx context.Context) (int64, error) {
	return c.engine.Session.CurrentUserID(ctx)
}

// terminalPresenter shows the sponsor banner and waits for Enter.
func terminalPresenter(in io.Reader, out io.Writer) sponsorports.Presenter {
	return sponsorports.PresenterFunc(func(ctx context.Context) error {
		fmt.Fprintln(out, "-- sponsored -- press Enter to continue")
		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(in).ReadString('\n')
			done <- err
		}()
		select {
		case err := <-done:
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func parseIDs(args []string, name string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, raw := range args {
		id, err := parseID(raw, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
