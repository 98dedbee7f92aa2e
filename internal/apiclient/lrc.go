package apiclient

import (
	"strconv"
	"strings"

	"github.com/sorairo/resonance/internal/domain"
)

// parseLRC parses the standard `[mm:ss.xx]text` synced-lyrics format the
// catalog API returns. Lines without a recognisable timestamp are
// skipped; the format has no escaping so a bare "text" line is just
// decoration (title/artist credit lines) rather than a lyric.
func parseLRC(raw string) []domain.LyricLine {
	var lines []domain.LyricLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")

		var timestamps []int64
		for strings.HasPrefix(line, "[") {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				break
			}
			if ms, ok := parseLRCTimestamp(line[1:end]); ok {
				timestamps = append(timestamps, ms)
			}
			line = line[end+1:]
		}

		text := strings.TrimSpace(line)
		for _, ms := range timestamps {
			lines = append(lines, domain.LyricLine{TimeMs: ms, Text: text})
		}
	}
	return lines
}

// parseLRCTimestamp parses "mm:ss.xx" or "mm:ss" into milliseconds.
func parseLRCTimestamp(tag string) (int64, bool) {
	parts := strings.SplitN(tag, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	minutes, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	secParts := strings.SplitN(parts[1], ".", 2)
	seconds, err := strconv.ParseInt(secParts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	var fraction int64
	if len(secParts) == 2 {
		f := secParts[1]
		for len(f) < 3 {
			f += "0"
		}
		fraction, _ = strconv.ParseInt(f, 10, 64)
	}
	return minutes*60*1000 + seconds*1000 + fraction, true
}
