package ytdlp

import (
	"regexp"
	"strconv"
	"strings"
)

// Tool progress output (with --newline --progress) looks like:
//
//	[download] Destination: downloads/Some Title-1712345678901.mp4
//	[download]   3.4% of 64.00MiB at 1.23MiB/s ETA 00:50
//	[download] 100% of 64.00MiB in 00:01
//	[download] Video Title.mp4 has already been downloaded
//	[Merger] Merging formats into "downloads/file.mkv"
//
// Chunks arrive on arbitrary boundaries and may use \r separators, so the
// parser is stateful: it carries the trailing partial line between chunks.

var (
	reDestination = regexp.MustCompile(`Destination:\s+(.+)`)
	rePercent     = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	reSize        = regexp.MustCompile(`([\d.]+)\s*(B|KiB|MiB|GiB)\s+of\s+~?\s*([\d.]+)\s*(B|KiB|MiB|GiB)`)
	reETA         = regexp.MustCompile(`ETA\s+(\d+:\d+(?::\d+)?)`)
	reMerger      = regexp.MustCompile(`\[Merger\]\s+Merging formats into "(.+)"`)
)

var unitMultiplier = map[string]float64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
}

// Update is a partial snapshot update parsed from one output chunk. Nil
// pointer fields were absent from the chunk and must retain their previous
// value (last-write-wins per field, not per message).
type Update struct {
	Percent           *float64
	DownloadedBytes   *int64
	TotalBytes        *int64
	ETA               *string
	Destination       *string
	AlreadyDownloaded bool
}

// Parser converts raw stdout chunks into Updates. Not safe for concurrent
// use; each subprocess gets its own parser.
type Parser struct {
	carry string
}

// NewParser creates a progress parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes one stdout chunk and returns the merged update for all
// complete lines in it. Partial trailing lines are held until the next chunk.
func (p *Parser) Feed(chunk string) Update {
	data := p.carry + chunk

	// Lines may end in \n or \r (carriage-return progress rewrites).
	lines := strings.FieldsFunc(data, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	// If the chunk does not end on a line boundary, the last segment is
	// incomplete; keep it for the next feed.
	p.carry = ""
	if len(data) > 0 {
		last := data[len(data)-1]
		if last != '\n' && last != '\r' && len(lines) > 0 {
			p.carry = lines[len(lines)-1]
			lines = lines[:len(lines)-1]
		}
	}

	var update Update
	for _, line := range lines {
		parseLine(line, &update)
	}
	return update
}

// Flush parses any held partial line as if it were complete. Call once after
// the stream ends.
func (p *Parser) Flush() Update {
	var update Update
	if p.carry != "" {
		parseLine(p.carry, &update)
		p.carry = ""
	}
	return update
}

func parseLine(line string, update *Update) {
	if m := reDestination.FindStringSubmatch(line); m != nil {
		dest := strings.TrimSpace(m[1])
		update.Destination = &dest
	}
	if m := reMerger.FindStringSubmatch(line); m != nil {
		dest := m[1]
		update.Destination = &dest
	}

	if strings.Contains(line, "has already been downloaded") {
		update.AlreadyDownloaded = true
		hundred := 100.0
		update.Percent = &hundred
		return
	}

	// Progress fields only appear on [download] lines; anything else with a
	// stray "%" (like format tables) must not move the bar.
	if !strings.Contains(line, "[download]") {
		return
	}

	if m := rePercent.FindStringSubmatch(line); m != nil {
		if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
			update.Percent = &pct
		}
	}
	if m := reSize.FindStringSubmatch(line); m != nil {
		downloaded := toBytes(m[1], m[2])
		total := toBytes(m[3], m[4])
		update.DownloadedBytes = &downloaded
		update.TotalBytes = &total
	}
	if m := reETA.FindStringSubmatch(line); m != nil {
		eta := m[1]
		update.ETA = &eta
	}
}

func toBytes(value, unit string) int64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int64(v * unitMultiplier[unit])
}
