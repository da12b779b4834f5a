package doccomment

import (
	"regexp"
	"strings"
)

// Doc is the structured documentation of a function.
type Doc struct {
	Summary string
	Returns string
	// Params maps parameter names, as written, to their descriptions.
	Params map[string]string
}

// Empty reports whether the doc carries no information.
func (d Doc) Empty() bool {
	return d.Summary == "" && d.Returns == "" && len(d.Params) == 0
}

// Param returns the description for name, compared case-insensitively.
func (d Doc) Param(name string) string {
	if s, ok := d.Params[name]; ok {
		return s
	}
	for k, v := range d.Params {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Parse tries the tag dialect first and falls back to the command dialect
// when the tags yield nothing.
func Parse(lines []string) Doc {
	if len(lines) == 0 {
		return Doc{}
	}
	if d := ParseTags(lines); !d.Empty() {
		return d
	}
	return ParseCommands(lines)
}

var (
	anyTagRe     = regexp.MustCompile(`(?i)</?(summary|param|returns?|remarks|para|example|see|c|code)\b[^>]*>`)
	summaryTagRe = regexp.MustCompile(`(?is)<summary\s*>(.*?)</summary\s*>`)
	paramTagRe   = regexp.MustCompile(`(?is)<param\s+name\s*=\s*["']([^"']+)["']\s*>(.*?)</param\s*>`)
	returnsTagRe = regexp.MustCompile(`(?is)<returns?\s*>(.*?)</returns?\s*>`)
)

// ParseTags parses the XML tag dialect. Text without any tag markers
// yields an empty Doc. When markers are present but <summary> is not
// closed, the remaining text with tags stripped becomes the summary.
func ParseTags(lines []string) Doc {
	text := strings.Join(lines, "\n")
	if !anyTagRe.MatchString(text) {
		return Doc{}
	}

	var d Doc
	for _, m := range paramTagRe.FindAllStringSubmatch(text, -1) {
		if d.Params == nil {
			d.Params = make(map[string]string)
		}
		d.Params[strings.TrimSpace(m[1])] = normalizeText(m[2])
	}
	if m := returnsTagRe.FindStringSubmatch(text); m != nil {
		d.Returns = normalizeText(m[1])
	}
	if m := summaryTagRe.FindStringSubmatch(text); m != nil {
		d.Summary = normalizeText(m[1])
	} else {
		rest := paramTagRe.ReplaceAllString(text, "")
		rest = returnsTagRe.ReplaceAllString(rest, "")
		d.Summary = normalizeText(anyTagRe.ReplaceAllString(rest, ""))
	}
	return d
}

type field int

const (
	fieldNone field = iota
	fieldSummary
	fieldParam
	fieldReturns
	fieldOther
)

// ParseCommands parses the command dialect: @brief or @short for the
// summary, @param [dir] name text, and @return or @returns. The \ character
// is accepted as the introducer. Lines following a command continue it
// until a blank line or the next command. Without @brief, the first
// non-blank free text line becomes the summary.
func ParseCommands(lines []string) Doc {
	var (
		d         Doc
		cur       field
		paramName string
		buf       []string
		summary   []string
		returns   []string
		free      []string
		params    = map[string][]string{}
		order     []string
	)
	flush := func() {
		switch cur {
		case fieldSummary:
			summary = append(summary, buf...)
		case fieldReturns:
			returns = append(returns, buf...)
		case fieldParam:
			params[paramName] = append(params[paramName], buf...)
		}
		cur, buf = fieldNone, nil
	}

	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			if cur == fieldNone {
				free = append(free, "")
			}
			flush()
			continue
		}
		cmd, rest, ok := command(t)
		if !ok {
			if cur == fieldNone {
				free = append(free, line)
			} else {
				buf = append(buf, line)
			}
			continue
		}
		flush()
		switch cmd {
		case "brief", "short":
			cur = fieldSummary
			buf = []string{rest}
		case "return", "returns", "result":
			cur = fieldReturns
			buf = []string{rest}
		case "param", "arg":
			name, text := paramCommand(rest)
			if name == "" {
				cur = fieldOther
				continue
			}
			if _, seen := params[name]; !seen {
				order = append(order, name)
			}
			cur, paramName = fieldParam, name
			buf = []string{text}
		default:
			cur = fieldOther
		}
	}
	flush()

	d.Summary = normalizeText(strings.Join(summary, "\n"))
	if d.Summary == "" {
		for _, l := range free {
			if !isBlank(l) {
				d.Summary = normalizeText(l)
				break
			}
		}
	}
	d.Returns = normalizeText(strings.Join(returns, "\n"))
	for _, name := range order {
		if d.Params == nil {
			d.Params = make(map[string]string)
		}
		d.Params[name] = normalizeText(strings.Join(params[name], "\n"))
	}
	return d
}

// command splits "@word rest" or "\word rest".
func command(t string) (cmd, rest string, ok bool) {
	if len(t) < 2 || (t[0] != '@' && t[0] != '\\') {
		return "", "", false
	}
	end := 1
	for end < len(t) && isWordChar(t[end]) {
		end++
	}
	if end == 1 {
		return "", "", false
	}
	return strings.ToLower(t[1:end]), strings.TrimSpace(t[end:]), true
}

// paramCommand splits "[in] name text" into name and text.
func paramCommand(rest string) (name, text string) {
	if strings.HasPrefix(rest, "[") {
		if i := strings.IndexByte(rest, ']'); i >= 0 {
			rest = strings.TrimSpace(rest[i+1:])
		}
	}
	end := 0
	for end < len(rest) && isWordChar(rest[end]) {
		end++
	}
	return rest[:end], strings.TrimSpace(rest[end:])
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

var spaceRun = regexp.MustCompile(`[ \t]+`)

// normalizeText removes the common indentation (tabs count as four
// columns), collapses runs of horizontal whitespace, joins the lines of a
// paragraph with a space and separates paragraphs with a blank line.
func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	indent := commonIndent(lines)

	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.TrimSpace(spaceRun.ReplaceAllString(strings.Join(cur, " "), " ")))
			cur = nil
		}
	}
	for _, l := range lines {
		if isBlank(l) {
			flush()
			continue
		}
		cur = append(cur, spaceRun.ReplaceAllString(dedent(l, indent), " "))
	}
	flush()
	return strings.Join(paras, "\n\n")
}

func indentWidth(line string) (width, bytes int) {
	for bytes < len(line) {
		switch line[bytes] {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width, bytes
		}
		bytes++
	}
	return width, bytes
}

func commonIndent(lines []string) int {
	least := -1
	for _, l := range lines {
		if isBlank(l) {
			continue
		}
		if w, _ := indentWidth(l); least < 0 || w < least {
			least = w
		}
	}
	return max(least, 0)
}

// dedent removes up to width columns of leading whitespace.
func dedent(line string, width int) string {
	col := 0
	for i := 0; i < len(line); i++ {
		if col >= width {
			return line[i:]
		}
		switch line[i] {
		case ' ':
			col++
		case '\t':
			col += 4
		default:
			return line[i:]
		}
	}
	return ""
}
