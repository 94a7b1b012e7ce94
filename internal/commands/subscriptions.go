package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subify/internal/models"
	"github.com/magabrotheeeer/subify/internal/services/plan"
	"github.com/magabrotheeeer/subify/internal/transfer"
)

var validate = validator.New()

// validationError собирает ошибки валидатора в одно сообщение.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, ", "))
}

// describe превращает отказ тарифа в понятное сообщение.
func describe(err error) error {
	if trigger, ok := plan.TriggerOf(err); ok {
		return fmt.Errorf("%w (run `subifyctl plan upgrade` to unlock, trigger: %s)", err, trigger)
	}
	return err
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			printSubscriptions(e, e.store.List())
			return nil
		}),
	}
}

func newAddCommand(opts *options) *cobra.Command {
	var req models.CreateRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a subscription",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, e *env, _ []string) error {
			if req.Currency == "" {
				req.Currency = string(e.store.Profile().Currency)
			}
			if req.NextRenewalDate == "" {
				req.NextRenewalDate = e.store.Today().String()
			}
			req.Currency = strings.ToUpper(req.Currency)
			if err := validate.Struct(req); err != nil {
				return validationError(err)
			}
			n, err := req.ToNew()
			if err != nil {
				return err
			}
			sub, err := e.store.Add(cmd.Context(), n)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(e.out, "Added %s (%s)\n", sub.Name, sub.ID)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "subscription name (required)")
	_ = cmd.MarkFlagRequired("name")
	f.Float64Var(&req.Price, "price", 0, "price per billing cycle")
	f.StringVar(&req.Currency, "currency", "", "price currency (defaults to the base currency)")
	f.StringVar(&req.Cycle, "cycle", string(models.CycleMonthly), "billing cycle: monthly, quarterly or yearly")
	f.StringVar(&req.Category, "category", models.DefaultCategory, "category")
	f.StringVar(&req.NextRenewalDate, "next", "", "next renewal date YYYY-MM-DD (defaults to today)")
	f.StringVar(&req.LastUsedDate, "last-used", "", "last used date YYYY-MM-DD")
	f.StringVar(&req.LogoURL, "logo", "", "logo URL")
	f.IntVar(&req.SharedWith, "shared", 0, "number of people sharing the cost")

	return cmd
}

func newUpdateCommand(opts *options) *cobra.Command {
	var name, cur, cycle, category, next, lastUsed, logo string
	var price float64
	var shared int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			changed := cmd.Flags().Changed
			var req models.UpdateRequest
			if changed("name") {
				req.Name = &name
			}
			if changed("price") {
				req.Price = &price
			}
			if changed("currency") {
				cur = strings.ToUpper(cur)
				req.Currency = &cur
			}
			if changed("cycle") {
				req.Cycle = &cycle
			}
			if changed("category") {
				req.Category = &category
			}
			if changed("next") {
				req.NextRenewalDate = &next
			}
			if changed("last-used") {
				req.LastUsedDate = &lastUsed
			}
			if changed("logo") {
				req.LogoURL = &logo
			}
			if changed("shared") {
				req.SharedWith = &shared
			}
			if err := validate.Struct(req); err != nil {
				return validationError(err)
			}
			patch, err := req.ToPatch()
			if err != nil {
				return err
			}
			sub, err := e.store.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Updated %s (%s)\n", sub.Name, sub.ID)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "subscription name")
	f.Float64Var(&price, "price", 0, "price per billing cycle")
	f.StringVar(&cur, "currency", "", "price currency")
	f.StringVar(&cycle, "cycle", "", "billing cycle")
	f.StringVar(&category, "category", "", "category")
	f.StringVar(&next, "next", "", "next renewal date YYYY-MM-DD")
	f.StringVar(&lastUsed, "last-used", "", "last used date YYYY-MM-DD")
	f.StringVar(&logo, "logo", "", "logo URL")
	f.IntVar(&shared, "shared", 0, "number of people sharing the cost")

	return cmd
}

func newRemoveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			if err := e.store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Removed %s\n", args[0])
			return nil
		}),
	}
}

func newRenewCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "renew <id>",
		Short: "Record a payment and move the renewal date forward",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			sub, err := e.store.Renew(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Renewed %s, next renewal %s\n", sub.Name, sub.NextRenewalDate)
			return nil
		}),
	}
}

func newRevertCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <id>",
		Short: "Undo the last recorded payment",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, e *env, args []string) error {
			sub, err := e.store.RevertLastPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Reverted %s, next renewal %s\n", sub.Name, sub.NextRenewalDate)
			return nil
		}),
	}
}

func newOverdueCommand(opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List subscriptions awaiting payment",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(_ *cobra.Command, e *env, _ []string) error {
			date := e.store.Today()
			if asOf != "" {
				d, err := models.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				date = d
			}
			due := e.store.Overdue(date)
			if len(due) == 0 {
				fmt.Fprintln(e.out, "Nothing is overdue")
				return nil
			}
			printSubscriptions(e, due)
			return nil
		}),
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date YYYY-MM-DD (defaults to today)")
	return cmd
}

func newCalendarCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "calendar [id]",
		Short: "Write renewal reminders as an iCalendar file",
		Long:  "Without an id every subscription is written into one calendar.",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(func(_ *cobra.Command, e *env, args []string) error {
			subs := e.store.List()
			if len(args) == 1 {
				sub, err := e.store.Get(args[0])
				if err != nil {
					return err
				}
				subs = []models.Subscription{sub}
			}

			w := e.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return transfer.WriteCalendar(w, subs, e.now())
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")
	return cmd
}
