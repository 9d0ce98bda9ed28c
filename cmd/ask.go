package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/insight"
	"github.com/spf13/cobra"
)

var askPrintPrompt bool

var askCmd = &cobra.Command{
	Use:   "ask <file.csv> <question>",
	Short: "Ask the configured model a question about a CSV",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		path := args[0]
		question := strings.Join(args[1:], " ")
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		opt := dataset.DefaultOptions()
		opt.Name = filepath.Base(path)
		d, err := dataset.LoadBytes(b, opt)
		if err != nil {
			return fmt.Errorf("%s: %w", dataset.UserMessage(err), err)
		}
		if askPrintPrompt {
			fmt.Fprintln(cmd.OutOrStdout(), insight.BuildPrompt(question, d, c.PreviewRows))
			return nil
		}
		req, err := newRequester(c)
		if err != nil {
			return err
		}
		ex := req.Ask(background(cmd), question, d)
		if ex.Failed() {
			fmt.Fprintln(cmd.ErrOrStderr(), "✗", ex.ErrorMessage())
		}
		fmt.Fprintln(cmd.OutOrStdout(), ex.Answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askPrintPrompt, "print-prompt", false, "print the prompt instead of sending it")
}
