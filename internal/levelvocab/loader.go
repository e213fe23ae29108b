// Package levelvocab reads the static grade-indexed word lists used to bulk
// seed a learner's vocabulary.
package levelvocab

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// wordLine accepts plain words and hyphenated compounds, nothing else.
var wordLine = regexp.MustCompile(`^[a-zA-Z-]+$`)

// gradeFiles maps a user-facing grade to its word list file.
var gradeFiles = map[string]string{
	"Primary School": "primary_school_all.txt",
	"Middle School":  "middle_school_all.txt",
	"High School":    "high_school_all.txt",
	"CET4":           "CET4_all.txt",
	"CET6":           "CET6_all.txt",
	"TOEFL":          "TOEFL_all.txt",
	"IELTS":          "IELTS_all.txt",
	"GRE":            "GRE_all.txt",
}

// Loader reads grade word lists from a directory of .txt or .json files.
type Loader struct {
	dir    string
	logger *logrus.Logger
}

// NewLoader builds a loader rooted at dir.
func NewLoader(dir string, logger *logrus.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Grades lists the supported grade levels.
func (l *Loader) Grades() []string {
	grades := lo.Keys(gradeFiles)
	sort.Strings(grades)
	return grades
}

// Words returns the deduplicated, order-preserving word list for grade.
// An unknown grade or unreadable file yields an empty list, logged, never
// fatal: seeding is best-effort.
func (l *Loader) Words(grade string) []string {
	filename, ok := gradeFiles[grade]
	if !ok {
		l.logger.WithField("grade", grade).Warn("unsupported grade level")
		return nil
	}

	path := filepath.Join(l.dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Some deployments ship the lists as JSON arrays instead.
		alt := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if _, err := os.Stat(alt); err == nil {
			path = alt
		}
	}
	words, err := l.readFile(path)
	if err != nil {
		l.logger.WithError(err).WithField("grade", grade).Warn("level word list unavailable")
		return nil
	}
	return lo.Uniq(words)
}

// Count returns the number of words available for grade.
func (l *Loader) Count(grade string) int {
	return len(l.Words(grade))
}

func (l *Loader) readFile(path string) ([]string, error) {
	if strings.HasSuffix(path, ".json") {
		return readJSONWords(path)
	}
	return readTxtWords(path)
}

// readTxtWords reads one word per line, skipping blanks and # comments.
func readTxtWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if wordLine.MatchString(line) {
			words = append(words, strings.ToLower(line))
		}
	}
	return words, scanner.Err()
}

func readJSONWords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var words []string
	for _, w := range raw {
		w = strings.TrimSpace(w)
		if wordLine.MatchString(w) {
			words = append(words, strings.ToLower(w))
		}
	}
	return words, nil
}
