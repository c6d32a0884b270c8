package commands

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/scribe/am"
	"github.com/teranos/scribe/display"
	"github.com/teranos/scribe/store"
	"github.com/teranos/scribe/sym"
)

// LsCmd lists stored descriptions
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: sym.DB + " List stored descriptions",
	Long: sym.DB + ` ls - List descriptions saved by generate

Every generate run appends rows; --item shows only the newest row for one
item.

Examples:
  scribe ls                    # Every stored description
  scribe ls --item column_11   # Newest description of one column
  scribe ls --json             # Machine readable`,
	RunE: runLs,
}

func init() {
	LsCmd.Flags().String("item", "", "Show the newest description for one item (e.g. table_1)")
	LsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	conn, err := openDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	descriptions := store.NewDescriptionStore(conn, "")
	var rows []*store.Description
	if item, _ := cmd.Flags().GetString("item"); item != "" {
		d, err := descriptions.Latest(cmd.Context(), item)
		if err != nil {
			return err
		}
		rows = []*store.Description{d}
	} else if rows, err = descriptions.List(cmd.Context()); err != nil {
		return err
	}

	return renderDescriptions(cmd.OutOrStdout(), rows, display.ShouldOutputJSON(cmd))
}

func renderDescriptions(w io.Writer, rows []*store.Description, jsonOutput bool) error {
	if jsonOutput {
		if rows == nil {
			rows = []*store.Description{}
		}
		return display.WriteJSON(w, rows)
	}

	if len(rows) == 0 {
		pterm.Info.Println("No descriptions stored")
		return nil
	}
	data := pterm.TableData{{"Item", "Suggested name", "Confidence", "Model", "Created", "Description"}}
	for _, d := range rows {
		data = append(data, []string{
			d.ItemID,
			d.SuggestedName,
			fmt.Sprintf("%.2f", d.ConfidenceScore),
			d.ModelUsed,
			d.CreatedAt.Format("2006-01-02 15:04:05"),
			d.Description,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
