// Package subtitle handles SRT generation/parsing and styled ASS scripts
// for burn-in rendering.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Word is a single transcribed word with its own timestamps.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// Segment is a transcribed span. Words is populated only when the
// transcription ran with word-level timestamps.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// FormatTimestamp renders seconds as the SRT HH:MM:SS,mmm form.
func FormatTimestamp(t float64) string {
	if t < 0 {
		t = 0
	}
	hrs := int(t) / 3600
	mins := (int(t) % 3600) / 60
	secs := int(t) % 60
	millis := int((t - float64(int(t))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hrs, mins, secs, millis)
}

// WriteSRT writes segments to an SRT file: sequential indices from 1,
// uppercased text, one cue per segment — or one cue per non-empty word when
// wordLevel is set. Zero segments produce a valid zero-cue file.
func WriteSRT(segments []Segment, path string, wordLevel bool) error {
	var lines []string
	idx := 1

	appendCue := func(start, end float64, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		lines = append(lines, strconv.Itoa(idx))
		lines = append(lines, FormatTimestamp(start)+" --> "+FormatTimestamp(end))
		lines = append(lines, strings.ToUpper(text))
		lines = append(lines, "")
		idx++
	}

	if wordLevel {
		for _, seg := range segments {
			for _, w := range seg.Words {
				appendCue(w.Start, w.End, w.Text)
			}
		}
	} else {
		for _, seg := range segments {
			appendCue(seg.Start, seg.End, seg.Text)
		}
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

// Cue is one parsed SRT entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

var timeRangeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// ParseSRT reads SRT cues from r. Malformed blocks are skipped.
func ParseSRT(r io.Reader) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(r)

	var current Cue
	inText := false

	flush := func() {
		if inText && current.Text != "" {
			cues = append(cues, current)
		}
		current = Cue{}
		inText = false
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			flush()
			continue
		}

		if !inText {
			if index, err := strconv.Atoi(line); err == nil {
				current.Index = index
				continue
			}
			if start, end, ok := parseTimeRange(line); ok {
				current.Start = start
				current.End = end
				inText = true
				continue
			}
			continue
		}

		if current.Text != "" {
			current.Text += "\n" + line
		} else {
			current.Text = line
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT: %w", err)
	}
	return cues, nil
}

// ParseSRTFile parses an SRT subtitle file from disk.
func ParseSRTFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SRT file: %w", err)
	}
	defer f.Close()
	return ParseSRT(f)
}

// parseTimeRange parses "HH:MM:SS,mmm --> HH:MM:SS,mmm".
func parseTimeRange(line string) (start, end time.Duration, ok bool) {
	matches := timeRangeRe.FindStringSubmatch(line)
	if len(matches) != 9 {
		return 0, 0, false
	}
	return assembleDuration(matches[1:5]), assembleDuration(matches[5:9]), true
}

func assembleDuration(parts []string) time.Duration {
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	millis, _ := strconv.Atoi(parts[3])
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
}
