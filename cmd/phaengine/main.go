package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"phaengine/adapters/excel"
	"phaengine/app"
	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"
	"phaengine/internal/config"
	"phaengine/internal/container"
	"phaengine/internal/testkit"
	"phaengine/ports"
)

type cli struct {
	c         *container.Container
	workspace string
}

func main() {
	_ = godotenv.Load()

	a := &cli{}
	rootCmd := &cobra.Command{
		Use:   "phaengine",
		Short: "Evaluate risk workspaces: quantities, units and lookup tables",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.c, err = container.New(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.c.Shutdown(cmd.Context())
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "Workspace file (default: WORKSPACE_FILE, else the demo)")

	rootCmd.AddCommand(
		a.newDemoCmd(),
		a.newEvalCmd(),
		a.newReportCmd(),
		a.newSetCmd(),
		a.newBecomeCmd(),
		a.newUnitsCmd(),
		a.newConvertCmd(),
		a.newImportTableCmd(),
		a.newExportTableCmd(),
		a.newSaveCmd(),
		a.newOpenCmd(),
		a.newListCmd(),
		a.newDeleteCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *cli) open(ctx context.Context) (*app.Workspace, error) {
	if a.workspace != "" {
		return a.c.OpenFile(a.workspace)
	}
	return a.c.Workspace(ctx, "")
}

// writeBack persists ws to the file it came from.
func (a *cli) writeBack(ws *app.Workspace) error {
	path := a.workspace
	if path == "" {
		path = a.c.Config.Paths.WorkspaceFile
	}
	if path == "" {
		return fmt.Errorf("--workspace is required to save changes")
	}
	return app.WriteWorkspaceFile(path, ws.Document())
}

func findQuantity(ws *app.Workspace, ref string) (*quantity.Quantity, error) {
	if q, ok := ws.Quantity(core.QuantityID(ref)); ok {
		return q, nil
	}
	if q, ok := ws.FindQuantity(ref); ok {
		return q, nil
	}
	return nil, core.NewNotFoundError("quantity", ref)
}

func (a *cli) newDemoCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write the demo workspace to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := testkit.NewDemo(a.c.Log)
			if err != nil {
				return err
			}
			if err := app.WriteWorkspaceFile(out, d.Workspace.Document()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "demo.json", "Output file")
	return cmd
}

func (a *cli) newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [quantity]",
		Short: "Evaluate one quantity, or every quantity, for all scenarios",
		Long: `Evaluate quantities in every scenario. A quantity is named by id or display name.

Example: phaengine eval -w plant.json "Individual risk"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			reader := app.NewReaderService(ws, a.c.Display())
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				q, err := findQuantity(ws, args[0])
				if err != nil {
					return err
				}
				detail, err := reader.GetQuantity(cmd.Context(), q.ID)
				if err != nil {
					return err
				}
				return printDetail(out, detail)
			}

			snap, err := reader.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printSnapshot(out, snap)
		},
	}
	return cmd
}

func printDetail(w io.Writer, d *ports.QuantityDetail) error {
	fmt.Fprintf(w, "%s (%s, %s)\n", d.Name, d.Kind, d.Unit)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range d.Values {
		note := ""
		if v.Problem != "" {
			note = v.Problem + ": " + v.Reason
		} else if v.FellBack {
			note = "from default"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.Scenario, v.Display, note)
	}
	return tw.Flush()
}

func printSnapshot(w io.Writer, snap *ports.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"QUANTITY", "KIND", "UNIT"}
	for _, sc := range snap.Scenarios {
		header = append(header, strings.ToUpper(string(sc)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range snap.Rows {
		cells := []string{row.Name, row.Kind, row.Unit}
		for _, v := range row.Values {
			cells = append(cells, v.Display)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func (a *cli) newReportCmd() *cobra.Command {
	var asHTML bool
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the evaluated workspace as markdown or HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := app.NewReaderService(ws, a.c.Display()).Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			body := []byte(app.RenderMarkdown(snap))
			if asHTML {
				body = app.RenderHTML(snap)
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(out, body, 0o644)
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render a standalone HTML page")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func (a *cli) newSetCmd() *cobra.Command {
	var scenario string
	var unset bool
	cmd := &cobra.Command{
		Use:   "set <quantity> [value]",
		Short: "Set or clear a user-entered value and save the workspace",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			q, err := findQuantity(ws, args[0])
			if err != nil {
				return err
			}
			sc := core.ReceptorID(scenario)

			err = ws.Update(func() error {
				if unset {
					return q.Unset(sc)
				}
				if len(args) < 2 {
					return fmt.Errorf("a value is required unless --unset is given")
				}
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", args[1], err)
				}
				return q.SetValue(sc, v)
			})
			if err != nil {
				return err
			}
			return a.writeBack(ws)
		},
	}
	cmd.Flags().StringVarP(&scenario, "scenario", "s", string(receptor.DefaultID), "Scenario (risk receptor) to change")
	cmd.Flags().BoolVar(&unset, "unset", false, "Clear the value instead of setting it")
	return cmd
}

func (a *cli) newBecomeCmd() *cobra.Command {
	kinds := make([]string, 0)
	for _, k := range quantity.Kinds() {
		kinds = append(kinds, string(k))
	}
	cmd := &cobra.Command{
		Use:   "become <quantity> <kind>",
		Short: "Change how a quantity obtains its value and save the workspace",
		Long:  "Change a quantity's kind. Known kinds: " + strings.Join(kinds, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			q, err := findQuantity(ws, args[0])
			if err != nil {
				return err
			}
			if err := ws.Update(func() error { return q.Become(quantity.Kind(args[1])) }); err != nil {
				return err
			}
			return a.writeBack(ws)
		},
	}
	return cmd
}

func (a *cli) newUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List the registered units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.c.NewEnv()
			if err != nil {
				return err
			}
			units, err := app.NewReaderService(app.NewWorkspace("units", env, a.c.Log), a.c.Display()).Units(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WIRE\tNAME\tKIND")
			for _, u := range units {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.WireName, u.Name, u.Kind)
			}
			return tw.Flush()
		},
	}
}

func (a *cli) newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert <value> <from> <to>",
		Short:   "Convert a value between units by their wire names",
		Example: "phaengine convert 1e-3 /yr /day",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[0], err)
			}
			env, err := a.c.NewEnv()
			if err != nil {
				return err
			}
			reader := app.NewReaderService(app.NewWorkspace("units", env, a.c.Log), a.c.Display())
			out, err := reader.Convert(cmd.Context(), v, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%g %s\n", out, args[2])
			return nil
		},
	}
}

func (a *cli) newImportTableCmd() *cobra.Command {
	var spec ports.TableImport
	cmd := &cobra.Command{
		Use:   "import-table <file>",
		Short: "Import a lookup table from an .xlsx or .csv grid into the workspace",
		Long: `Import a lookup table. The first column holds the row keys; the header row
holds the column keys when there is more than one value column.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			spec.Path = args[0]
			t, err := ws.ImportTable(cmd.Context(), excel.NewTableReader(a.c.Log), spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s, %d cells)\n", t.Name, t.ID, len(t.Cells()))
			return a.writeBack(ws)
		},
	}
	cmd.Flags().StringVar(&spec.Sheet, "sheet", "", "Sheet name (xlsx only)")
	cmd.Flags().StringVar(&spec.Name, "name", "", "Table name (default: file name)")
	cmd.Flags().StringVar(&spec.ColumnDimension, "column-dimension", "", "Name of the second axis")
	cmd.Flags().StringVar(&spec.KeyUnit, "key-unit", "", "Wire name of the key unit")
	cmd.Flags().StringVar(&spec.ValueUnit, "value-unit", "", "Wire name of the value unit")
	return cmd
}

func (a *cli) newExportTableCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-table <table>",
		Short: "Write a lookup table to an .xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range ws.Tables() {
				if t.ID.String() == args[0] || t.Name == args[0] {
					rec := t.Encode()
					if out == "" {
						out = t.Name + ".xlsx"
					}
					if err := excel.ExportTable(out, &rec); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
					return nil
				}
			}
			return core.NewNotFoundError("lookup table", args[0])
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output workbook (default: <table>.xlsx)")
	return cmd
}

func (a *cli) newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Store the workspace in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := a.c.StoreService(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Save(cmd.Context(), ws); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", ws.Name())
			return nil
		},
	}
}

func (a *cli) newOpenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "open <name>",
		Short: "Load a stored workspace and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.c.StoreService(cmd.Context())
			if err != nil {
				return err
			}
			env, err := a.c.NewEnv()
			if err != nil {
				return err
			}
			ws, err := svc.Open(cmd.Context(), args[0], env)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".json"
			}
			if err := app.WriteWorkspaceFile(out, ws.Document()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: <name>.json)")
	return cmd
}

func (a *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.c.StoreService(cmd.Context())
			if err != nil {
				return err
			}
			list, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tQUANTITIES\tUPDATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Quantities, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func (a *cli) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.c.StoreService(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Delete(cmd.Context(), args[0])
		},
	}
}
