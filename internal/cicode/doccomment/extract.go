// Package doccomment finds the documentation comment attached to a
// function header and parses it into a Doc.
//
// Two comment styles are recognized: a block comment (/* ... */) ending on
// the nearest non-blank line above the header, or a run of line comments
// (// or !). The comment text may use either the XML tag dialect
// (<summary>, <param name="x">, <returns>) or the command dialect
// (@brief, @param, @return, with \ accepted in place of @).
package doccomment

import "strings"

// maxLines bounds the backward walk over comment lines.
const maxLines = 200

// Extract returns the parsed doc for the header starting at headerStart,
// preferring a block comment over line comments.
func Extract(text string, headerStart int) Doc {
	lines := ExtractBlock(text, headerStart)
	if len(lines) == 0 {
		lines = ExtractLine(text, headerStart)
	}
	return Parse(lines)
}

// linesAbove returns up to maxLines lines preceding the line containing
// offset, nearest first, with carriage returns removed.
func linesAbove(text string, offset int) []string {
	if offset > len(text) {
		offset = len(text)
	}
	cursor := strings.LastIndexByte(text[:max(offset, 0)], '\n') + 1
	var out []string
	for cursor > 0 && len(out) < maxLines {
		end := cursor - 1
		start := strings.LastIndexByte(text[:end], '\n') + 1
		out = append(out, strings.TrimSuffix(text[start:end], "\r"))
		cursor = start
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ExtractBlock returns the decoration-free lines of the block comment
// immediately above headerStart, or nil when there is none. Blank lines
// between the comment and the header are allowed.
func ExtractBlock(text string, headerStart int) []string {
	above := linesAbove(text, headerStart)
	i := 0
	for i < len(above) && isBlank(above[i]) {
		i++
	}
	if i == len(above) || !strings.HasSuffix(strings.TrimSpace(above[i]), "*/") {
		return nil
	}

	var collected []string
	opened := false
	for ; i < len(above); i++ {
		collected = append(collected, above[i])
		if strings.Contains(above[i], "/*") {
			opened = strings.HasPrefix(strings.TrimSpace(above[i]), "/*")
			break
		}
	}
	if !opened {
		return nil
	}
	reverse(collected)

	last := len(collected) - 1
	for j, line := range collected {
		if j == last {
			line = strings.TrimRight(line, " \t")
			line = strings.TrimSuffix(line, "*/")
			line = strings.TrimRight(line, "*")
		}
		if j == 0 {
			line = stripOpener(line)
		} else {
			line = stripStar(line)
		}
		collected[j] = line
	}
	return collapseBlank(collected)
}

// stripOpener removes the leading /* (or /**) and keeps the indentation
// of the remaining text in line with the comment body.
func stripOpener(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]
	trimmed = strings.TrimPrefix(trimmed, "/*")
	trimmed = strings.TrimLeft(trimmed, "*")
	return indent + "  " + trimmed
}

// stripStar removes a leading " * " gutter.
func stripStar(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "*/") {
		return line
	}
	return strings.TrimPrefix(trimmed[1:], " ")
}

// ExtractLine returns the text of the line-comment run immediately above
// headerStart, or nil when there is none.
func ExtractLine(text string, headerStart int) []string {
	above := linesAbove(text, headerStart)
	i := 0
	for i < len(above) && isBlank(above[i]) {
		i++
	}
	if i == len(above) || !isLineComment(above[i]) {
		return nil
	}

	var collected []string
	for ; i < len(above); i++ {
		if !isBlank(above[i]) && !isLineComment(above[i]) {
			break
		}
		collected = append(collected, above[i])
	}
	reverse(collected)
	for j, line := range collected {
		collected[j] = stripLineMarker(line)
	}
	return collapseBlank(collected)
}

func isLineComment(line string) bool {
	t := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "!")
}

func stripLineMarker(line string) string {
	t := strings.TrimLeft(line, " \t")
	switch {
	case strings.HasPrefix(t, "//"):
		return strings.TrimLeft(t, "/")
	case strings.HasPrefix(t, "!"):
		return strings.TrimLeft(t, "!")
	}
	return line
}

// collapseBlank drops leading and trailing blank lines and folds runs of
// blank lines into a single empty line.
func collapseBlank(lines []string) []string {
	var out []string
	for _, l := range lines {
		if isBlank(l) {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		out = append(out, l)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
