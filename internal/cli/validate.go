package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"op-quiz-engine/internal/config"
	"op-quiz-engine/internal/infra/content"
)

// NewValidateCmd checks quiz content files without touching any database.
func NewValidateCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check quiz content files against the quiz schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				dir = cfg.Quiz.ContentDir
			}
			loader, err := content.NewLoader(dir, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, quiz := range loader.All() {
				status := "published"
				if !quiz.Published {
					status = "draft"
				}
				fmt.Fprintf(out, "%s\t%s\t%d sequences\t%d questions\n",
					quiz.Slug, status, len(quiz.Sequences), quiz.QuestionCount())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "content directory (defaults to quiz.content_dir)")
	return cmd
}
