package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/KaramelBytes/odap/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaSentiment string
	anaRows      int
	anaMaxWords  int
	anaOutDir    string
	anaJSON      bool
	anaDelimiter string
	anaMaxRows   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Render the dashboard panels for a CSV to the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		path := args[0]
		opt := dataset.DefaultOptions()
		opt.Name = filepath.Base(path)
		opt.MaxRows = anaMaxRows
		switch anaDelimiter {
		case "", ",":
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		case "|", "pipe":
			opt.Delimiter = '|'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		d, err := dataset.LoadBytes(b, opt)
		if err != nil {
			return fmt.Errorf("%s: %w", dataset.UserMessage(err), err)
		}

		ropt := renderOptions(c)
		if anaRows > 0 {
			ropt.PreviewRows = anaRows
		}
		if anaMaxWords > 0 {
			ropt.MaxWords = anaMaxWords
		}
		page := pipeline.Render(background(cmd), d, pipeline.Selection{Sentiment: anaSentiment}, ropt)

		out := cmd.OutOrStdout()
		if anaJSON {
			js, err := utils.PrettyJSON(page)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(js))
		} else if err := pipeline.WriteText(out, page); err != nil {
			return err
		}

		if anaOutDir == "" {
			return nil
		}
		if err := utils.EnsureDir(anaOutDir); err != nil {
			return err
		}
		base := utils.SafeName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		for _, p := range page.Panels {
			if !p.HasChart() {
				continue
			}
			name := fmt.Sprintf("%s_%s.png", base, p.Kind)
			if p.Kind == pipeline.PanelWordCloud && p.Selected != pipeline.AllSentiments {
				name = fmt.Sprintf("%s_%s_%s.png", base, p.Kind, utils.SafeName(p.Selected))
			}
			dst := filepath.Join(anaOutDir, name)
			if err := utils.SafeWriteFile(dst, p.Chart); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", dst)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaSentiment, "sentiment", "s", "", "filter the word cloud by this sentiment value")
	analyzeCmd.Flags().IntVar(&anaRows, "rows", 0, "preview rows (overrides config, default 5)")
	analyzeCmd.Flags().IntVar(&anaMaxWords, "max-words", 0, "word cloud size, at most 100 (overrides config)")
	analyzeCmd.Flags().StringVarP(&anaOutDir, "out", "o", "", "directory to write chart PNGs into")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the render description as JSON")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum rows to load (0 = unlimited)")
}
