// Package commands реализует команды subifyctl поверх локального файла состояния.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subify/internal/buildinfo"
	"github.com/magabrotheeeer/subify/internal/currency"
	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/services/subscription"
	"github.com/magabrotheeeer/subify/internal/storage/filestore"
)

const defaultStatePath = "~/.subify/state.json"

type options struct {
	statePath string
	ratesURL  string
	offline   bool
	verbose   bool
	now       func() time.Time
}

// env открытое состояние для одной команды.
type env struct {
	out       io.Writer
	log       *slog.Logger
	now       func() time.Time
	store     *subscription.Store
	converter *currency.Converter
	refresher *currency.Refresher
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{now: time.Now})
}

func newRootCommand(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "subifyctl",
		Short:   "Track subscriptions, renewals and spending",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.statePath, "state", defaultStatePath, "path to the state file")
	flags.StringVar(&opts.ratesURL, "rates-url", currency.DefaultBaseURL, "exchange rate API base URL")
	flags.BoolVar(&opts.offline, "offline", false, "do not fetch exchange rates")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		newListCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newRemoveCommand(opts),
		newRenewCommand(opts),
		newRevertCommand(opts),
		newOverdueCommand(opts),
		newCalendarCommand(opts),
		newSummaryCommand(opts),
		newForecastCommand(opts),
		newReportCommand(opts),
		newInsightsCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newPlanCommand(opts),
		newCurrencyCommand(opts),
		newBudgetCommand(opts),
		newCategoryCommand(opts),
		newNotificationsCommand(opts),
	)

	return rootCmd
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// open загружает состояние и подготавливает конвертер. Курсы берутся из
// rates.json рядом с файлом состояния или запрашиваются у источника.
func (o *options) open(cmd *cobra.Command) (*env, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path, err := expandHome(o.statePath)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	store, err := subscription.New(ctx, filestore.New(path), log, subscription.WithClock(o.now))
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	converter := currency.NewConverter(store.Profile().Currency)
	store.OnBaseChange(converter.SetBase)
	rateCache := filestore.NewRateCache(filepath.Join(filepath.Dir(path), "rates.json"))
	refresher := currency.NewRefresher(converter, currency.NewClient(o.ratesURL, 10*time.Second),
		rateCache, currency.DefaultTTL, log)
	if !o.offline {
		if err := refresher.Ensure(ctx, converter.Base()); err != nil {
			log.Warn("using fallback exchange rates", slog.String("base", string(converter.Base())), sl.Err(err))
		}
	}

	return &env{
		out:       cmd.OutOrStdout(),
		log:       log,
		now:       o.now,
		store:     store,
		converter: converter,
		refresher: refresher,
	}, nil
}

// run открывает состояние и выполняет fn.
func (o *options) run(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := o.open(cmd)
		if err != nil {
			return err
		}
		return fn(cmd, e, args)
	}
}
