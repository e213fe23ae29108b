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
	"strings"

	"github.com/spf13/cobra"

	"github.com/eslsoft/lexitrack/internal/app"
)

// seedCmd bulk-loads a grade's word list into one user's vocabulary.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a user's vocabulary from a grade word list",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		grade, _ := cmd.Flags().GetString("grade")
		reset, _ := cmd.Flags().GetBool("reset")

		ctx := cmd.Context()
		c, err := app.Build(ctx)
		if err != nil {
			return fmt.Errorf("build application: %w", err)
		}
		defer c.Close()

		if err := c.Repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}

		if reset {
			err = c.Vocab.ResetAndSeedLevel(ctx, userID, grade)
		} else {
			err = c.Vocab.SeedLevel(ctx, userID, grade)
		}
		if err != nil {
			return fmt.Errorf("seed grade %q: %w (支持的等级: %s)", grade, err,
				strings.Join(c.Vocab.Grades(), ", "))
		}
		if err := c.Vocab.FlushUser(ctx, userID); err != nil {
			return err
		}

		stats, err := c.Vocab.Stats(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("user %d: %d words (%d mastered, %d learning, %.1f%%)\n",
			userID, stats.Total, stats.Mastered, stats.Learning, stats.MasteryRate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int64("user", 0, "user id to seed")
	seedCmd.Flags().String("grade", "", "grade level, e.g. CET4")
	seedCmd.Flags().Bool("reset", false, "wipe previous level-list words before seeding (grade change)")
	_ = seedCmd.MarkFlagRequired("user")
	_ = seedCmd.MarkFlagRequired("grade")
}
