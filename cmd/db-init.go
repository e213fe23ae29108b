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
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eslsoft/lexitrack/internal/app"
)

// dbInitCmd creates the vocabulary schema and optionally installs the
// ECDICT sqlite dictionary used for record enrichment.
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "初始化数据库并安装词典",
	Long:  "创建词汇表结构，并从 ECDICT 下载 sqlite 词典用于词条补全。注意: go-sqlite3 需要 CGO_ENABLED=1 构建。如需仅建表不下载，可使用 --schema-only。",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		schemaOnly, _ := cmd.Flags().GetBool("schema-only")
		cacheDir, _ := cmd.Flags().GetString("cache-dir")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		ctx := cmd.Context()
		c, err := app.Build(ctx)
		if err != nil {
			return fmt.Errorf("build application: %w", err)
		}
		defer c.Close()

		schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := c.Repo.EnsureSchema(schemaCtx); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
		log.Println("数据库初始化完成")

		if schemaOnly {
			return nil
		}
		if c.Config.Dictionary.Path == "" {
			log.Println("未配置 dictionary.path，跳过词典安装")
			return nil
		}
		return installECDICT(ctx, url, c.Config.Dictionary.Path, cacheDir, noCache)
	},
}

const ecDictURL = "https://github.com/skywind3000/ECDICT/releases/download/1.0.28/ecdict-sqlite-28.zip"

func init() {
	rootCmd.AddCommand(dbInitCmd)
	dbInitCmd.Flags().String("url", ecDictURL, "ECDICT 下载地址")
	dbInitCmd.Flags().Bool("schema-only", false, "仅创建表结构，不下载词典")
	dbInitCmd.Flags().String("cache-dir", "", "ECDICT 缓存目录 (默认: 用户缓存目录/lexitrack)")
	dbInitCmd.Flags().Bool("no-cache", false, "忽略本地缓存, 强制重新下载")
}

// installECDICT downloads the ECDICT release zip and places the contained
// sqlite database at dstPath. The dictionary provider reads the stardict
// table in place, so no import step is needed.
func installECDICT(ctx context.Context, url, dstPath, cacheDirFlag string, noCache bool) error {
	start := time.Now()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("开始安装 ECDICT: %s", url)

	tmpDir, err := os.MkdirTemp("", "ecdict-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	cacheDir, zipPath, fromCache, err := prepareCachePath(url, cacheDirFlag, noCache)
	if err != nil {
		return err
	}
	if !fromCache {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return fmt.Errorf("创建缓存目录失败: %w", err)
		}
		log.Printf("下载 ECDICT 到缓存: %s", zipPath)
		if err := downloadFile(ctx, url, zipPath); err != nil {
			return err
		}
	} else {
		log.Printf("使用缓存文件: %s", zipPath)
	}

	sqlitePath, err := unzipSingle(func(name string) bool {
		return strings.HasSuffix(name, ".db") || strings.HasSuffix(name, ".sqlite")
	}, zipPath, tmpDir)
	if err != nil {
		return err
	}
	log.Printf("已解压 sqlite: %s", sqlitePath)

	if dir := filepath.Dir(dstPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建词典目录失败: %w", err)
		}
	}
	if err := copyFile(sqlitePath, dstPath); err != nil {
		return fmt.Errorf("安装词典失败: %w", err)
	}
	log.Printf("词典已安装: %s, 耗时 %s", dstPath, time.Since(start))
	return nil
}

// helpers
func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("下载失败: %s", resp.Status)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}

func unzipSingle(match func(string) bool, zipPath, dstDir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if match(f.Name) {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			defer rc.Close()
			outPath := filepath.Join(dstDir, filepath.Base(f.Name))
			out, err := os.Create(outPath)
			if err != nil {
				return "", err
			}
			if _, err := io.Copy(out, rc); err != nil {
				out.Close()
				return "", err
			}
			out.Close()
			return outPath, nil
		}
	}
	return "", errors.New("zip 中未找到 sqlite 文件")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// prepareCachePath decides cache location and returns (cacheDir, zipPath, fromCache, error)
func prepareCachePath(url, cacheDirFlag string, noCache bool) (string, string, bool, error) {
	var base string
	if cacheDirFlag != "" {
		base = cacheDirFlag
	} else {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return "", "", false, fmt.Errorf("获取用户缓存目录失败: %w", err)
		}
		base = filepath.Join(userCache, "lexitrack")
	}
	// stable filename from URL hash
	h := crc32.ChecksumIEEE([]byte(url))
	name := fmt.Sprintf("ecdict-%08x.zip", h)
	zipPath := filepath.Join(base, name)
	if !noCache {
		if st, err := os.Stat(zipPath); err == nil && st.Size() > 0 {
			return base, zipPath, true, nil
		}
	}
	return base, zipPath, false, nil
}
