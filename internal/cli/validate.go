package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/snipcheck/internal/registry"
	"github.com/roach88/snipcheck/internal/snippet"
)

// SnippetInfo describes one snippet without running it.
type SnippetInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Deferred bool   `json:"deferred,omitempty"`
	Strict   bool   `json:"strict,omitempty"`
	Expected int    `json:"expected"`
	Timeout  string `json:"timeout,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool          `json:"valid"`
	Registry string        `json:"registry"`
	Snippets []SnippetInfo `json:"snippets"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <registry>",
		Short: "Validate and compile a registry without running it",
		Long: `Load a registry file, check it against the registry schema and compile
every snippet source, without executing anything.

All problems are reported at once. A malformed registry exits with status 2.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	f.VerboseLog("Loading registry %s", path)
	reg, err := registry.LoadFile(path)
	if err != nil {
		return loadFailure(f, path, err)
	}

	if f.JSON() {
		return f.Success(ValidationResult{Valid: true, Registry: reg.Name(), Snippets: describe(reg)})
	}

	for _, s := range reg.Snippets() {
		f.VerboseLog("  %s (%d expected record(s))", s.ID, len(s.Expected))
	}
	fmt.Fprintf(f.Writer, "✓ Registry %q valid: %d snippet(s)\n", reg.Name(), reg.Len())
	return nil
}

// listSnippets prints the snippets of reg.
func listSnippets(f *OutputFormatter, reg *snippet.Registry) error {
	infos := describe(reg)
	if f.JSON() {
		return f.Success(ValidationResult{Valid: true, Registry: reg.Name(), Snippets: infos})
	}

	for _, s := range infos {
		if s.Title != "" {
			fmt.Fprintf(f.Writer, "%-22s %s\n", s.ID, s.Title)
		} else {
			fmt.Fprintln(f.Writer, s.ID)
		}
	}
	return nil
}

func describe(reg *snippet.Registry) []SnippetInfo {
	snippets := reg.Snippets()
	infos := make([]SnippetInfo, len(snippets))
	for i, s := range snippets {
		infos[i] = SnippetInfo{
			ID:       s.ID,
			Title:    s.Title,
			Deferred: s.Deferred,
			Strict:   s.Strict,
			Expected: len(s.Expected),
		}
		if s.Timeout > 0 {
			infos[i].Timeout = s.Timeout.String()
		}
	}
	return infos
}
