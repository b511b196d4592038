package mdnorm

import (
	"regexp"
	"strings"
)

var offerRe = regexp.MustCompile(`(?i)^\s*(?:[-*+]\s+|\d+[.)]\s+)?(?:\*\*|__|_|\*)?\s*(?:` +
	`if you(?:'d| would)? (?:want|like|prefer|wish)|` +
	`would you like(?: me)? to|do you want me to|want me to|shall i|should i|` +
	`let me know if|feel free to (?:ask|let me know)|` +
	`i can (?:also )?(?:provide|create|prepare|expand|add|generate|write|draft|help|include|turn)|` +
	`i(?:'d| would) be happy to|` +
	`si (?:quieres|lo deseas|deseas|te interesa|prefieres|lo prefieres)|` +
	`¿?(?:quieres|deseas) que|¿?te gustar[ií]a que|` +
	`puedo (?:tambi[eé]n )?(?:ayudarte|prepararte|proporcionarte|crear|generar|ampliar|añadir|agregar|redactar)|` +
	`av[ií]same si|h[aá]zmelo saber)`)

// StripAssistantMeta removes paragraphs and list items that open with a
// first or second person offer ("If you want, I can...", "Would you like me
// to...") together with the list that directly follows them.
func StripAssistantMeta(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines))
	var f Fence

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if f.Next(line).InFence() {
			out = append(out, line)
			continue
		}
		atBlockStart := i == 0 || isBlank(lines[i-1]) || listItemRe.MatchString(line)
		if !atBlockStart || !offerRe.MatchString(line) {
			out = append(out, line)
			continue
		}

		if m := listItemRe.FindStringSubmatch(line); m != nil {
			// Meta list item: drop it with its continuation and sub-items.
			indent := len(m[1])
			i++
			for i < len(lines) && !isBlank(lines[i]) && !atxLineStartRe.MatchString(lines[i]) {
				if sm := listItemRe.FindStringSubmatch(lines[i]); sm != nil && len(sm[1]) <= indent {
					break
				}
				i++
			}
			i--
			continue
		}

		// Meta paragraph: drop it, then any list that follows.
		i++
		for i < len(lines) && !isBlank(lines[i]) && !listItemRe.MatchString(lines[i]) &&
			!atxLineStartRe.MatchString(lines[i]) && !IsFenceLine(lines[i]) {
			i++
		}
		j := i
		for j < len(lines) && isBlank(lines[j]) {
			j++
		}
		if j < len(lines) && listItemRe.MatchString(lines[j]) {
			i = j
			for i < len(lines) {
				l := lines[i]
				if isBlank(l) {
					k := i
					for k < len(lines) && isBlank(lines[k]) {
						k++
					}
					// A blank line inside a loose list keeps the list going.
					if k < len(lines) && listItemRe.MatchString(lines[k]) {
						i = k
						continue
					}
					break
				}
				if !listItemRe.MatchString(l) && !strings.HasPrefix(l, " ") && !strings.HasPrefix(l, "\t") {
					break
				}
				i++
			}
		}
		for i < len(lines) && isBlank(lines[i]) {
			i++
		}
		i--
	}
	return trimBlankEdges(strings.Join(out, "\n"))
}

// trimBlankEdges removes blank lines at the start and end of text.
func trimBlankEdges(text string) string {
	lines := splitLines(text)
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
