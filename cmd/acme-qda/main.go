// Command acme-qda annotates text documents open in acme with
// qualitative codes, highlights and memos, reports where codes overlap
// and paints every annotation layer into the window through acme-styles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cptaffe/acme-qda/internal/logger"
)

var (
	projectPath string
	stylesPath  string
	docFlag     string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "acme-qda",
	Short:         "Qualitative data analysis in acme",
	Long:          "acme-qda codes, highlights and memos text documents open in acme and reports code overlaps.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := logger.New(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.ReplaceGlobals(l)
		cmd.SetContext(logger.NewContext(cmd.Context(), l))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "qda.toml", "project file")
	rootCmd.PersistentFlags().StringVar(&stylesPath, "styles", "", "styles file (acme-styles palette format)")
	rootCmd.PersistentFlags().StringVarP(&docFlag, "doc", "d", "", "document id or title (default: the document shown in $winid)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(overlapsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(codesCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(highlightCmd)
	rootCmd.AddCommand(memoCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(reassignCmd)
	rootCmd.AddCommand(renameCodeCmd)
	rootCmd.AddCommand(rmCodeCmd)
	rootCmd.AddCommand(paintCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	zap.L().Sync() //nolint:errcheck
	if err != nil {
		fmt.Fprintf(os.Stderr, "acme-qda: %v\n", err)
		os.Exit(1)
	}
}
