package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Veraticus/rd-classifier/internal/cli"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/profile"
	"github.com/spf13/cobra"
)

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage rule profiles",
		Long: `A profile is a named pair of rule sets, one for RD03 and one for RD05.
The active profile is used by classify unless --profile names another.`,
	}

	cmd.AddCommand(listProfilesCmd())
	cmd.AddCommand(addProfileCmd())
	cmd.AddCommand(duplicateProfileCmd())
	cmd.AddCommand(renameProfileCmd())
	cmd.AddCommand(deleteProfileCmd())
	cmd.AddCommand(useProfileCmd())
	cmd.AddCommand(exportProfilesCmd())
	cmd.AddCommand(importProfilesCmd())

	return cmd
}

// withManager opens the store and runs fn with a profile manager over it.
func withManager(cmd *cobra.Command, fn func(ctx context.Context, mgr *profile.Manager) error) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(ctx, profile.NewManager(store.ConfigStore))
}

// resolveProfile returns profile id from store, or the active profile.
func resolveProfile(ctx context.Context, store *backend, id string) (model.Profile, error) {
	prof, err := profile.NewManager(store.ConfigStore).Resolve(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return model.Profile{}, common.NewUserError(
			fmt.Sprintf("No profile with id %q. Run 'rdc profiles list' to see them.", id), err)
	}
	return prof, err
}

func listProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				state, err := mgr.Load(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					cli.BoldStyle.Render(" "),
					cli.BoldStyle.Render("ID"),
					cli.BoldStyle.Render("Name"),
					cli.BoldStyle.Render("RD03"),
					cli.BoldStyle.Render("RD05"))
				for _, p := range state.Profiles {
					marker := " "
					if p.ID == state.ActiveID {
						marker = cli.ActiveIcon
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", marker, p.ID, p.Name, len(p.RD03Rules), len(p.RD05Rules))
				}
				return w.Flush()
			})
		},
	}
}

func addProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a profile with the built-in rules and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				p, err := mgr.Add(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created profile %q (%s)", p.Name, p.ID)))
				return nil
			})
		},
	}
}

func duplicateProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id> <name>",
		Short: "Copy a profile's rules into a new active profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				p, err := mgr.Duplicate(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created profile %q (%s)", p.Name, p.ID)))
				return nil
			})
		},
	}
}

func renameProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				if err := mgr.Rename(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Renamed "+args[0]))
				return nil
			})
		},
	}
}

func deleteProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Long:  `Delete a profile. The default profile cannot be deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				p, err := mgr.Get(ctx, args[0])
				if err != nil {
					return err
				}
				ok, err := confirm(cmd, fmt.Sprintf("Delete profile %q?", p.Name))
				if err != nil || !ok {
					return err
				}
				if err := mgr.Delete(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted profile %q", p.Name)))
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func useProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				if err := mgr.Use(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Active profile is now "+args[0]))
				return nil
			})
		},
	}
}

func exportProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of every profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				backup, err := mgr.Export(ctx)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(backup, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode backup: %w", err)
				}

				out, _ := cmd.Flags().GetString("out")
				if out == "" {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
					return fmt.Errorf("failed to write backup: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d profiles to %s", len(backup.Profiles), out)))
				return nil
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", "file to write (default: stdout)")
	return cmd
}

func importProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore profiles from a backup",
		Long: `Restore profiles from a backup file. A multi-profile backup replaces every
stored profile. A single-profile backup ({rd03Rules, rd05Rules}) is added as a
new active profile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}
			name, _ := cmd.Flags().GetString("name")

			var probe struct {
				Version string `json:"version"`
			}
			if json.Unmarshal(data, &probe) == nil && probe.Version == model.BackupVersion {
				ok, err := confirm(cmd, "This replaces every stored profile. Continue?")
				if err != nil || !ok {
					return err
				}
			}

			return withManager(cmd, func(ctx context.Context, mgr *profile.Manager) error {
				res, err := mgr.Import(ctx, data, name)
				if err != nil {
					if errors.Is(err, common.ErrInvalidBackup) {
						return common.NewUserError("The file is not an rdc backup.", err)
					}
					return err
				}
				msg := fmt.Sprintf("Restored %d profiles", res.Profiles)
				if res.Legacy {
					msg = "Imported rules as profile " + res.ActiveID
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
				return nil
			})
		},
	}
	cmd.Flags().String("name", profile.DefaultImportName, "name for a profile imported from a single-profile backup")
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks prompt on the command's streams unless --yes was given.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(cmd.Context(), cmd.OutOrStdout(), prompt)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Cancelled"))
	}
	return ok, nil
}
