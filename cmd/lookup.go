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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/lexitrack/internal/app"
	"github.com/eslsoft/lexitrack/internal/entity"
)

// lookupCmd records a dictionary lookup for a user and prints the record.
var lookupCmd = &cobra.Command{
	Use:   "lookup <word>",
	Short: "Record a dictionary lookup and show the word's record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		word := args[0]

		ctx := cmd.Context()
		c, err := app.Build(ctx)
		if err != nil {
			return fmt.Errorf("build application: %w", err)
		}
		defer c.Close()

		if err := c.Repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if err := c.Vocab.RecordLookup(ctx, userID, word); err != nil {
			return err
		}
		if err := c.Vocab.FlushUser(ctx, userID); err != nil {
			return err
		}

		rec, err := c.Vocab.Record(ctx, userID, word)
		if errors.Is(err, entity.ErrWordNotFound) {
			// Native-script lookups are deliberately not tracked.
			fmt.Printf("%q not tracked\n", word)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s  source=%s right=%d wrong=%d mastered=%v\n",
			rec.Word, rec.Source, rec.RightUseCount, rec.WrongUseCount, rec.Mastered)
		if rec.Translation != "" {
			fmt.Println(rec.Translation)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().Int64("user", 0, "user id")
	_ = lookupCmd.MarkFlagRequired("user")
}
