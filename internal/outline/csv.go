package outline

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var dottedNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)*\.?$`)

// CSVLoader reads number,title[,summary] rows into numbered outline lines.
// A header row is skipped. Rows without a number become the next top-level
// chapter.
type CSVLoader struct{}

func (l *CSVLoader) Load(r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var out []string
	next := 0
	for i, row := range records {
		if len(row) == 0 {
			continue
		}
		number := strings.TrimSpace(row[0])
		title := ""
		if len(row) > 1 {
			title = strings.TrimSpace(row[1])
		}
		if i == 0 && !dottedNumberRe.MatchString(number) && strings.EqualFold(title, "title") {
			continue
		}
		if !dottedNumberRe.MatchString(number) {
			// Single-column or unnumbered row: the first cell is the title.
			if title == "" {
				title = number
			}
			next++
			number = strconv.Itoa(next)
		} else if !strings.Contains(strings.TrimSuffix(number, "."), ".") {
			if n, err := strconv.Atoi(strings.TrimSuffix(number, ".")); err == nil {
				next = n
			}
		}
		if title == "" {
			continue
		}
		out = append(out, strings.TrimSuffix(number, ".")+" "+title)
		if len(row) > 2 {
			for _, line := range strings.Split(row[2], "\n") {
				if line = strings.TrimSpace(line); line != "" {
					out = append(out, escapeSummaryLine(line))
				}
			}
		}
	}
	return strings.Join(out, "\n") + "\n", nil
}

// escapeSummaryLine backslash-escapes a summary line that Ingest would
// otherwise read as a heading, bullet or numbered entry.
func escapeSummaryLine(line string) string {
	switch {
	case isHeading(line), isBullet(line):
		return `\` + line
	case isNumbered(line):
		m := numberedRe.FindStringSubmatchIndex(line)
		end := m[3]
		return line[:end] + `\` + line[end:]
	}
	return line
}
