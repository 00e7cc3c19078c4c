package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codemaster-service/internal/preview"
)

// NewComposeCmd composes markup, style and script files into one preview
// document on stdout.
func NewComposeCmd() *cobra.Command {
	var markupPath, stylePath, scriptPath, example string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose HTML, CSS and JS files into a preview document",
		RunE: func(cmd *cobra.Command, args []string) error {
			var src preview.Sources
			if example != "" {
				ex, err := preview.Example(example)
				if err != nil {
					return fmt.Errorf("example %q: %w", example, err)
				}
				src = ex
			}
			for _, f := range []struct {
				path string
				dst  *string
			}{
				{markupPath, &src.Markup},
				{stylePath, &src.Style},
				{scriptPath, &src.Script},
			} {
				if f.path == "" {
					continue
				}
				data, err := os.ReadFile(f.path)
				if err != nil {
					return err
				}
				*f.dst = string(data)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), preview.Compose(src.Markup, src.Style, src.Script))
			return err
		},
	}
	cmd.Flags().StringVar(&markupPath, "html", "", "markup file")
	cmd.Flags().StringVar(&stylePath, "css", "", "style file")
	cmd.Flags().StringVar(&scriptPath, "js", "", "script file")
	cmd.Flags().StringVar(&example, "example", "", "start from a built-in example ("+fmt.Sprint(preview.Examples())+")")
	return cmd
}
