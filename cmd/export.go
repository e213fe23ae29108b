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
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/lexitrack/internal/app"
	"github.com/eslsoft/lexitrack/internal/usecase/backup"
)

const (
	exportOutputKey = "backup.export.output"
	exportGzipKey   = "backup.export.gzip"
	exportUsersKey  = "backup.export.users"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出用户词库为 NDJSON 备份",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		outputPath := viper.GetString(exportOutputKey)
		gzipEnabled := viper.GetBool(exportGzipKey)
		userIDs, err := usersFromConfig(exportUsersKey)
		if err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return fmt.Errorf("请通过 --users 指定要导出的用户")
		}

		if outputPath == "" {
			outputPath = defaultExportFilename(gzipEnabled)
		}
		if !gzipEnabled && outputPath != "-" && strings.HasSuffix(strings.ToLower(outputPath), ".gz") {
			gzipEnabled = true
		}

		c, err := app.Build(ctx)
		if err != nil {
			return fmt.Errorf("build application: %w", err)
		}
		defer c.Close()

		service := backup.NewService(c.Repo)

		var (
			writer   = cmd.OutOrStdout()
			closeFns []func() error
		)

		if outputPath != "-" {
			if dir := filepath.Dir(outputPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("创建输出目录失败: %w", err)
				}
			}
			file, openErr := os.Create(outputPath)
			if openErr != nil {
				return fmt.Errorf("创建备份文件失败: %w", openErr)
			}
			writer = file
			closeFns = append(closeFns, file.Close)
		}

		if gzipEnabled {
			gz := gzip.NewWriter(writer)
			writer = gz
			closeFns = append([]func() error{gz.Close}, closeFns...)
		}

		defer func() {
			for _, closer := range closeFns {
				if cerr := closer(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}()

		progress := newCLIProgress(cmd.ErrOrStderr())
		if err := service.Export(ctx, writer, userIDs, backup.WithProgressReporter(progress)); err != nil {
			return fmt.Errorf("导出备份失败: %w", err)
		}

		if outputPath == "-" {
			cmd.Println("导出完成: 输出到标准输出")
		} else {
			cmd.Printf("导出完成: %s\n", outputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "备份输出文件路径，使用 - 表示标准输出")
	exportCmd.Flags().Bool("gzip", false, "使用 gzip 压缩输出")
	exportCmd.Flags().StringSlice("users", nil, "要导出的用户 id，逗号分隔或重复指定")

	bindExportConfig()
}

func defaultExportFilename(gzipEnabled bool) string {
	ts := time.Now().UTC().Format("20060102-150405")
	filename := fmt.Sprintf("lexitrack-backup-%s.jsonl", ts)
	if gzipEnabled {
		filename += ".gz"
	}
	return filename
}

func bindExportConfig() {
	bindFlagToViper(exportOutputKey, exportCmd.Flags().Lookup("output"))
	bindFlagToViper(exportGzipKey, exportCmd.Flags().Lookup("gzip"))
	bindFlagToViper(exportUsersKey, exportCmd.Flags().Lookup("users"))
}

type cliProgress struct {
	out         io.Writer
	totals      map[int64]int
	counts      map[int64]int
	lastPrinted map[int64]int
	steps       map[int64]int
}

func newCLIProgress(out io.Writer) *cliProgress {
	return &cliProgress{
		out:         out,
		totals:      make(map[int64]int),
		counts:      make(map[int64]int),
		lastPrinted: make(map[int64]int),
		steps:       make(map[int64]int),
	}
}

func (p *cliProgress) StartUser(userID int64, total int) {
	if total < 0 {
		total = 0
	}
	p.totals[userID] = total
	p.counts[userID] = 0
	p.lastPrinted[userID] = 0
	p.steps[userID] = progressStep(total)
	fmt.Fprintf(p.out, "开始导出用户 %d (共 %d 行)\n", userID, total)
}

func (p *cliProgress) Increment(userID int64, delta int) {
	if delta <= 0 {
		return
	}
	current := p.counts[userID] + delta
	p.counts[userID] = current
	total := p.totals[userID]
	step := p.steps[userID]
	if step <= 0 {
		step = 1
	}
	last := p.lastPrinted[userID]
	if current == total || last == 0 || current-last >= step {
		fmt.Fprintf(p.out, "导出进度 用户 %d: %d/%d\n", userID, current, total)
		p.lastPrinted[userID] = current
	}
}

func (p *cliProgress) FinishUser(userID int64) {
	fmt.Fprintf(p.out, "完成导出用户 %d: %d/%d 行\n", userID, p.counts[userID], p.totals[userID])
	delete(p.counts, userID)
	delete(p.totals, userID)
	delete(p.lastPrinted, userID)
	delete(p.steps, userID)
}

func progressStep(total int) int {
	if total <= 0 {
		return 1000
	}
	step := total / 20
	if step < 1 {
		step = 1
	}
	if step > 1000 {
		step = 1000
	}
	return step
}
