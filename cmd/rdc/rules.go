package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/rd-classifier/internal/api"
	"github.com/Veraticus/rd-classifier/internal/cli"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/pattern"
	"github.com/Veraticus/rd-classifier/internal/profile"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and edit a profile's rules",
	}

	cmd.PersistentFlags().String("mode", "RD03", "rule set: RD03 or RD05")
	cmd.PersistentFlags().String("profile", "", "profile id (default: active profile)")

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(testRulesCmd())
	cmd.AddCommand(exportRulesCmd())
	cmd.AddCommand(importRulesCmd())

	return cmd
}

// ruleTarget reads --mode and --profile and returns the selected rule set.
func ruleTarget(ctx context.Context, cmd *cobra.Command, mgr *profile.Manager) (model.Profile, model.Mode, error) {
	rawMode, _ := cmd.Flags().GetString("mode")
	mode, err := model.ParseMode(rawMode)
	if err != nil {
		return model.Profile{}, "", common.NewUserError(err.Error(), common.ErrInvalidConfig)
	}
	id, _ := cmd.Flags().GetString("profile")
	prof, err := mgr.Resolve(ctx, id)
	if err != nil {
		return model.Profile{}, "", err
	}
	return prof, mode, nil
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				prof, mode, err := ruleTarget(ctx, cmd, mgr)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s rules of %q", mode, prof.Name)))
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tID\tTarget\tValue\tPriority\tConditions")
				for i, r := range pattern.Ordered(prof.Rules(mode)) {
					value := r.AssignedValue()
					if r.OnlyIfEmpty {
						value += " (if empty)"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
						i+1, r.ID, r.Target(), value,
						strconv.FormatFloat(r.Priority, 'f', -1, 64),
						describeConditions(r.Conditions))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				lintRules(prof.Rules(mode), mode)
				return nil
			})
		},
	}
}

func describeConditions(conds []model.Condition) string {
	if len(conds) == 0 {
		return "(always)"
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, fmt.Sprintf("%s %s %s", c.Column, c.Operator, c.Value))
	}
	return strings.Join(parts, " AND ")
}

func testRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <column=value>...",
		Short: "Classify a single row and show which rules fired",
		Example: `  rdc rules test Concession=- 'Line_Type=เส้นใยแก้วนำแสง(Fig.8)'
  rdc rules test --mode RD05 PEA=x Owner=NT`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseRowArgs(args)
			if err != nil {
				return err
			}
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				prof, mode, err := ruleTarget(ctx, cmd, mgr)
				if err != nil {
					return err
				}
				resp, err := api.Explain(values, mode, prof)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Group:           %s\n", resp.Group)
				fmt.Fprintf(out, "GroupConcession: %s\n", resp.GroupConcession)
				if len(resp.Matches) == 0 {
					fmt.Fprintln(out, cli.FormatInfo("No rule matched"))
					return nil
				}
				fmt.Fprintln(out)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "Fired\tID\tTarget\tValue")
				for i, m := range resp.Matches {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, m.ID, m.TargetField, m.Value)
				}
				for _, m := range resp.Shadowed {
					fmt.Fprintf(w, "-\t%s\t%s\t%s\n", m.ID, m.TargetField, m.Value)
				}
				return w.Flush()
			})
		},
	}
}

// parseRowArgs turns column=value pairs into row values. Values that parse
// as numbers are passed as numbers.
func parseRowArgs(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, common.NewUserError(fmt.Sprintf("expected column=value, got %q", arg), common.ErrInvalidConfig)
		}
		if n, err := strconv.ParseFloat(val, 64); err == nil {
			values[col] = n
		} else {
			values[col] = val
		}
	}
	return values, nil
}

func exportRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a rule set as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				prof, mode, err := ruleTarget(ctx, cmd, mgr)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(prof.Rules(mode))
				if err != nil {
					return fmt.Errorf("failed to encode rules: %w", err)
				}

				out, _ := cmd.Flags().GetString("out")
				if out == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					return fmt.Errorf("failed to write rules: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d rules to %s", len(prof.Rules(mode)), out)))
				return nil
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", "file to write (default: stdout)")
	return cmd
}

func importRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace a rule set with rules from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to read rules: %w", err)
			}
			var rules []model.Rule
			if err := yaml.Unmarshal(data, &rules); err != nil {
				return common.NewUserError("The file is not a list of rules: "+err.Error(), common.ErrInvalidConfig)
			}

			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				prof, mode, err := ruleTarget(ctx, cmd, mgr)
				if err != nil {
					return err
				}
				lintRules(rules, mode)
				if err := mgr.UpdateRules(ctx, prof.ID, mode, rules); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %d %s rules to %q", len(rules), mode, prof.Name)))
				return nil
			})
		},
	}
}
