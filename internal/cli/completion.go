package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
	"github.com/matzehuels/pagecomposer/pkg/store"
)

// completionTimeout bounds the backend lookup behind page id completion.
const completionTimeout = 2 * time.Second

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pagecomposer.

Besides commands and flags, the scripts complete page ids for inspect,
edit and tree. The ids are fetched from the backend given by --backend
(or the configured one), or read from the --fixture of tree.

  bash        source <(pagecomposer completion bash)
  zsh         pagecomposer completion zsh > "${fpath[1]}/_pagecomposer"
  fish        pagecomposer completion fish | source
  powershell  pagecomposer completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// completePageIDs completes the page id argument of inspect, edit and
// tree. Each candidate carries the page's site as its description.
func (c *CLI) completePageIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	pages, err := c.completionPages(ctx, cmd)
	if err != nil {
		cobra.CompDebugln("page completion: "+err.Error(), true)
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, p := range pages {
		if strings.HasPrefix(p.ID, toComplete) {
			out = append(out, p.ID+"\t"+p.SiteID)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completionPages lists the pages from the command's fixture or backend.
func (c *CLI) completionPages(ctx context.Context, cmd *cobra.Command) ([]pagemodel.Page, error) {
	if f := cmd.Flags().Lookup("fixture"); f != nil && f.Value.String() != "" {
		if f.Value.String() == "demo" {
			return store.DemoFixture().Pages, nil
		}
		fx, err := store.LoadFixture(f.Value.String())
		if err != nil {
			return nil, err
		}
		return fx.Pages, nil
	}
	var backend string
	if f := cmd.Flags().Lookup("backend"); f != nil {
		backend = f.Value.String()
	}
	api, err := c.newAPI(ctx, backend, true)
	if err != nil {
		return nil, err
	}
	return api.Pages(ctx)
}
