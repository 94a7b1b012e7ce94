package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subify/internal/models"
)

func newPlanCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show or change the plan",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			fmt.Fprintf(e.out, "Plan: %s\n", e.store.Profile().Plan)
			return nil
		}),
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "upgrade",
			Short: "Switch to premium",
			Args:  cobra.NoArgs,
			RunE: opts.run(func(cmd *cobra.Command, e *env, _ []string) error {
				if err := e.store.UpgradeToPremium(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(e.out, "Plan: premium")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "downgrade",
			Short: "Switch to the free plan",
			Args:  cobra.NoArgs,
			RunE: opts.run(func(cmd *cobra.Command, e *env, _ []string) error {
				if err := e.store.DowngradeToFree(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(e.out, "Plan: free")
				return nil
			}),
		},
	)
	return cmd
}

func newCurrencyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "currency [code]",
		Short: "Show or set the base currency",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			if len(args) == 0 {
				rates := e.converter.Snapshot()
				fmt.Fprintf(e.out, "Base currency: %s\n", e.converter.Base())
				t := newTable(e.out, table.Row{"Currency", "Rate"})
				for _, c := range models.SupportedCurrencies {
					if r, ok := rates.Rates[c]; ok {
						t.AppendRow(table.Row{c, r.String()})
					}
				}
				t.Render()
				return nil
			}

			code := models.Currency(strings.ToUpper(args[0]))
			if err := e.store.SetBaseCurrency(cmd.Context(), code); err != nil {
				return err
			}
			if !opts.offline {
				_ = e.refresher.Ensure(cmd.Context(), code)
			}
			fmt.Fprintf(e.out, "Base currency: %s\n", code)
			return nil
		}),
	}
}

func newBudgetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "budget [amount]",
		Short: "Show or set the monthly budget (0 disables it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			p := e.store.Profile()
			if len(args) == 0 {
				fmt.Fprintf(e.out, "Monthly budget: %s\n", e.money().format(p.MonthlyBudget, p.Currency))
				return nil
			}
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			if err := e.store.UpdateBudget(cmd.Context(), amount); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Monthly budget: %s\n", e.money().format(amount, p.Currency))
			return nil
		}),
	}
}

func newCategoryCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories",
			Args:  cobra.NoArgs,
			RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
				for _, c := range e.store.Categories() {
					fmt.Fprintln(e.out, c)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a custom category",
			Args:  cobra.ExactArgs(1),
			RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
				if err := e.store.AddCategory(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Added category %s\n", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove a custom category",
			Args:  cobra.ExactArgs(1),
			RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
				if err := e.store.RemoveCategory(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Removed category %s\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

func newNotificationsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "notifications <on|off>",
		Short:     "Enable or disable renewal reminders",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			enabled := args[0] == "on"
			if err := e.store.SetNotifications(cmd.Context(), enabled); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Notifications: %s\n", args[0])
			return nil
		}),
	}
}
