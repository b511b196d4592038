package mdnorm

import (
	"regexp"
	"strings"
	"unicode"
)

// noteRoots are note names whose "#" is a sharp, not a glued heading marker.
var noteRoots = map[string]bool{
	"a": true, "b": true, "c": true, "d": true, "e": true, "f": true, "g": true,
	"do": true, "re": true, "mi": true, "fa": true, "sol": true, "la": true, "si": true,
}

var (
	inlineCodeRe = regexp.MustCompile("`+[^`]*`+")
	urlRe        = regexp.MustCompile(`(?i)(?:https?|ftp)://[^\s<>()\[\]]+`)
)

// InlineHashSpacing separates a "#" glued between a word and a following
// letter or digit ("foo#bar" becomes "foo# bar") unless the word is a note
// root, so "F#7" and "Do#m7" survive. A "#" ending a line after a word gets a
// trailing space. Inline code and URLs are left alone.
func InlineHashSpacing(text string) string {
	return mapOutside(text, func(line string) string {
		for range 8 {
			next := hashLine(line)
			if next == line {
				break
			}
			line = next
		}
		return line
	})
}

func hashLine(line string) string {
	if !strings.Contains(line, "#") {
		return line
	}
	protected := make([]bool, len(line))
	for _, re := range []*regexp.Regexp{inlineCodeRe, urlRe} {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			for i := loc[0]; i < loc[1]; i++ {
				protected[i] = true
			}
		}
	}

	runes := []rune(line)
	// Map rune index to byte offset for the protection mask.
	offsets := make([]int, len(runes))
	off := 0
	for i, r := range runes {
		offsets[i] = off
		off += len(string(r))
	}

	var sb strings.Builder
	for i, r := range runes {
		sb.WriteRune(r)
		if r != '#' || protected[offsets[i]] {
			continue
		}
		word := leftWord(runes, i)
		if word == "" {
			continue
		}
		rest := runes[i+1:]
		if len(rest) > 0 && (unicode.IsLetter(rest[0]) || unicode.IsDigit(rest[0])) {
			if !noteRoots[strings.ToLower(word)] {
				sb.WriteByte(' ')
			}
			continue
		}
		if len(rest) == 0 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// leftWord returns the run of letters ending right before runes[i], provided
// it starts at a word boundary.
func leftWord(runes []rune, i int) string {
	j := i
	for j > 0 && unicode.IsLetter(runes[j-1]) {
		j--
	}
	if j == i {
		return ""
	}
	if j > 0 {
		p := runes[j-1]
		if unicode.IsDigit(p) || p == '_' {
			return ""
		}
	}
	return string(runes[j:i])
}
