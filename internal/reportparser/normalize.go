package reportparser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Byte sequences that show up when UTF-8 emoji and punctuation were decoded
// as Windows-1252 somewhere upstream ("ðŸ”´" for the red circle).
var mojibakeSignatures = []string{"ðŸ", "âœ", "âš", "â€", "Ã"}

// normalize prepares text for matching. The result is only used internally;
// callers keep the original text.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ToValidUTF8(text, "\uFFFD")

	if hasMojibake(text) {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = repairMojibake(line)
		}
		text = strings.Join(lines, "\n")
	}

	return norm.NFC.String(text)
}

func hasMojibake(text string) bool {
	for _, sig := range mojibakeSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}

// repairMojibake repairs each run of Windows-1252 representable characters
// on its own, so correctly encoded emoji elsewhere on the line survive. A run is
// re-encoded as Windows-1252 and reinterpreted as UTF-8; runs that do not turn
// into valid UTF-8 are kept unchanged.
func repairMojibake(line string) string {
	if !hasMojibake(line) {
		return line
	}

	var out, run strings.Builder
	var raw []byte
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if hasMojibake(run.String()) && utf8.Valid(raw) {
			out.Write(raw)
		} else {
			out.WriteString(run.String())
		}
		run.Reset()
		raw = raw[:0]
	}

	for _, r := range line {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			flush()
			out.WriteRune(r)
			continue
		}
		run.WriteRune(r)
		raw = append(raw, b)
	}
	flush()

	return out.String()
}
