package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

// inspectCommand creates the inspect command that prints a page model.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		backend string
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [page-id]",
		Short: "Print the page model of a page",
		Long: `Print the page model of a page.

Without a page id the pages of the backend are listed. With one, the page's
containers and items are printed in document order together with the
toolkit components that can be added to it.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completePageIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.runListPages(cmd.Context(), backend, asJSON)
			}
			return c.runInspect(cmd.Context(), args[0], backend, asJSON, noCache)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "backend URL (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runListPages(ctx context.Context, backend string, asJSON bool) error {
	api, err := c.newAPI(ctx, backend, true)
	if err != nil {
		return err
	}
	pages, err := api.Pages(ctx)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	if asJSON {
		return writeJSON(pages)
	}
	if len(pages) == 0 {
		printInfo("No pages")
		return nil
	}
	for _, p := range pages {
		printKeyValue(p.ID, p.SiteID+StyleDim.Render(" root="+p.RootID))
	}
	return nil
}

func (c *CLI) runInspect(ctx context.Context, pageID, backend string, asJSON, noCache bool) error {
	api, err := c.newAPI(ctx, backend, noCache)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Looking up page "+pageID+"...")
	spinner.Start()

	page, err := api.FindPage(ctx, pageID)
	if err != nil {
		spinner.StopWithError("Page lookup failed")
		return err
	}
	spinner.Update("Loading page model...")
	comps, err := api.PageModel(ctx, page.RootID)
	if err != nil {
		spinner.StopWithError("Page model failed")
		return fmt.Errorf("load page model: %w", err)
	}
	var toolkit []pagemodel.Component
	if page.ToolkitID != "" {
		spinner.Update("Loading toolkit...")
		if toolkit, err = api.Toolkit(ctx, page.ToolkitID); err != nil {
			c.Logger.Warn("load toolkit", "toolkit", page.ToolkitID, "err", err)
		}
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Loaded %d components", len(comps)))

	if asJSON {
		return writeJSON(struct {
			Page       pagemodel.Page        `json:"page"`
			Components []pagemodel.Component `json:"components"`
			Toolkit    []pagemodel.Component `json:"toolkit,omitempty"`
		}{page, comps, toolkit})
	}

	printKeyValue("Page", page.ID)
	printKeyValue("Site", page.SiteID)
	if page.ToolkitID != "" {
		printKeyValue("Toolkit", page.ToolkitID)
	}
	printNewline()
	fmt.Println(componentTable(comps))
	printModelStats(comps)

	if len(toolkit) > 0 {
		printNewline()
		fmt.Println(StyleTitle.Render("Toolkit"))
		for _, t := range toolkit {
			printDetail("%s  %s", t.ID, t.Name)
		}
	}
	return nil
}

// componentTable renders comps in model order, indented by depth.
func componentTable(comps []pagemodel.Component) string {
	depth := componentDepths(comps)
	rows := make([][]string, 0, len(comps))
	for _, comp := range comps {
		kind := comp.XType
		if comp.IsItem() {
			kind = comp.Template
		}
		children := ""
		if comp.IsContainer() {
			children = strconv.Itoa(len(comp.Children))
		}
		rows = append(rows, []string{
			strings.Repeat("  ", depth[comp.ID]) + displayName(comp),
			comp.ID,
			typeLabel(comp.Type),
			kind,
			children,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Component", "ID", "Type", "Kind", "Items").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 || row >= len(comps) {
				return base
			}
			switch {
			case comps[row].IsContainer():
				return base.Foreground(colorCyan)
			case col > 0:
				return base.Foreground(colorGray)
			}
			return base
		}).
		Render()
}

// componentDepths returns the nesting depth of every component reachable
// through children lists from the first component.
func componentDepths(comps []pagemodel.Component) map[string]int {
	byID := make(map[string]pagemodel.Component, len(comps))
	for _, comp := range comps {
		byID[comp.ID] = comp
	}
	depth := make(map[string]int, len(comps))
	var walk func(id string, d int)
	walk = func(id string, d int) {
		if _, seen := depth[id]; seen {
			return
		}
		depth[id] = d
		for _, child := range byID[id].Children {
			walk(child, d+1)
		}
	}
	if len(comps) > 0 {
		walk(comps[0].ID, 0)
	}
	return depth
}

func displayName(comp pagemodel.Component) string {
	if comp.Name != "" {
		return comp.Name
	}
	return comp.ID
}

func typeLabel(t pagemodel.Type) string {
	switch t {
	case pagemodel.TypePage:
		return "page"
	case pagemodel.TypeContainer:
		return "container"
	case pagemodel.TypeContainerItem:
		return "item"
	}
	return string(t)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
