/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/lexitrack/internal/app"
)

// statsCmd prints a user's vocabulary progress.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a user's vocabulary progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		listWords, _ := cmd.Flags().GetBool("words")

		ctx := cmd.Context()
		c, err := app.Build(ctx)
		if err != nil {
			return fmt.Errorf("build application: %w", err)
		}
		defer c.Close()

		if err := c.Repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}

		stats, err := c.Vocab.Stats(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("user %d: %d words (%d mastered, %d learning, %.1f%%)\n",
			userID, stats.Total, stats.Mastered, stats.Learning, stats.MasteryRate)

		if listWords {
			records, err := c.Vocab.Words(ctx, userID)
			if err != nil {
				return err
			}
			for _, rec := range records {
				mark := " "
				if rec.Mastered {
					mark = "*"
				}
				fmt.Printf("%s %-24s %-20s right=%d wrong=%d\n",
					mark, rec.Word, rec.Source, rec.RightUseCount, rec.WrongUseCount)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int64("user", 0, "user id")
	statsCmd.Flags().Bool("words", false, "list every active word record")
	_ = statsCmd.MarkFlagRequired("user")
}
