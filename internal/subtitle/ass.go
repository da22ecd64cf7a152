package subtitle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/verticut/verticut/internal/model"
)

// FallbackFont is a font family available on any system with a base font
// set. The burn handler retries with it when the requested font fails.
const FallbackFont = "Arial"

// Style holds the recognized subtitle style parameters. Unknown keys in the
// wire dict are ignored.
type Style struct {
	FontName        string
	FontSize        int
	PrimaryColor    string // #RRGGBB
	OutlineColor    string // #RRGGBB
	BackgroundColor string // #RRGGBB, box fill when BorderStyle == 3
	Alignment       int    // UI values: 2 bottom-center, 10 middle-center, 6 top-center
	BorderStyle     int    // 1 = outline+shadow, 3 = opaque box
	LetterSpacing   int
	ShadowBlur      int
}

// DefaultStyle matches the UI's initial state.
func DefaultStyle() Style {
	return Style{
		FontName:     "Arial Black",
		FontSize:     32,
		PrimaryColor: "#ffffff",
		OutlineColor: "#000000",
		Alignment:    2,
		BorderStyle:  1,
	}
}

// StyleFromDict decodes the wire-format style object, tolerating numbers
// arriving as float64 (JSON) and strings. Unknown keys are ignored.
func StyleFromDict(d model.Dict) Style {
	s := DefaultStyle()
	if d == nil {
		return s
	}
	if v, ok := dictString(d, "fontName"); ok {
		s.FontName = v
	}
	if v, ok := dictInt(d, "fontSize"); ok {
		s.FontSize = v
	}
	if v, ok := dictString(d, "primaryColor"); ok {
		s.PrimaryColor = v
	}
	if v, ok := dictString(d, "outlineColor"); ok {
		s.OutlineColor = v
	}
	if v, ok := dictString(d, "backgroundColor"); ok {
		s.BackgroundColor = v
	}
	if v, ok := dictInt(d, "alignment"); ok {
		s.Alignment = v
	}
	if v, ok := dictInt(d, "borderStyle"); ok {
		s.BorderStyle = v
	}
	if v, ok := dictInt(d, "letterSpacing"); ok {
		s.LetterSpacing = v
	}
	if v, ok := dictInt(d, "shadowBlur"); ok {
		s.ShadowBlur = v
	}
	return s
}

func dictString(d model.Dict, key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.Itoa(int(t)), true
	}
	return "", false
}

func dictInt(d model.Dict, key string) (int, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

// ToASSColor converts a #RRGGBB hex color to the ASS &H00BBGGRR form.
// Missing colors default to opaque white; malformed ones to a
// semi-transparent black suitable for box backgrounds.
func ToASSColor(hexColor string) string {
	if hexColor == "" {
		return "&H00FFFFFF"
	}
	hexVal := strings.TrimPrefix(hexColor, "#")
	if len(hexVal) != 6 {
		return "&HA0000000"
	}
	r, g, b := hexVal[0:2], hexVal[2:4], hexVal[4:6]
	return fmt.Sprintf("&H00%s%s%s", strings.ToUpper(b), strings.ToUpper(g), strings.ToUpper(r))
}

// assAlignment remaps the UI alignment values to the ASS convention:
// 2 = bottom center, 5 = middle center, 8 = top center.
func assAlignment(ui int) int {
	switch ui {
	case 10:
		return 5
	case 6:
		return 8
	default:
		return 2
	}
}

// assTime renders a cue timestamp in the ASS H:MM:SS.cc form.
func assTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	centis := int(d.Milliseconds()%1000) / 10
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

// BuildASS renders cues into a complete ASS script with the style embedded.
// Text is uppercased and collapsed onto one line per cue.
func BuildASS(cues []Cue, style Style) string {
	if style.FontName == "" {
		style.FontName = DefaultStyle().FontName
	}
	if style.FontSize == 0 {
		style.FontSize = DefaultStyle().FontSize
	}
	borderStyle := style.BorderStyle
	if borderStyle != 3 {
		borderStyle = 1
	}
	// Outline width applies to style 1; the box style draws BackColour instead.
	outlineWidth := 2
	if borderStyle == 3 {
		outlineWidth = 0
	}

	back := ToASSColor(style.BackgroundColor)
	if style.BackgroundColor == "" {
		back = "&HA0000000"
	}

	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("PlayResX: 1280\n")
	b.WriteString("PlayResY: 720\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("\n")
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,&H000000FF,%s,%s,1,0,0,0,100,100,%d,0,%d,%d,%d,%d,10,10,20,1\n",
		style.FontName, style.FontSize,
		ToASSColor(style.PrimaryColor), ToASSColor(style.OutlineColor), back,
		style.LetterSpacing, borderStyle, outlineWidth, style.ShadowBlur,
		assAlignment(style.Alignment))
	b.WriteString("\n")
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, cue := range cues {
		text := strings.ToUpper(strings.Join(strings.Fields(cue.Text), " "))
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assTime(cue.Start), assTime(cue.End), text)
	}

	return b.String()
}

// CreateASSFile converts the SRT at srtPath into a styled ASS script next
// to it and returns the new path.
func CreateASSFile(srtPath string, style Style) (string, error) {
	cues, err := ParseSRTFile(srtPath)
	if err != nil {
		return "", err
	}

	assPath := strings.TrimSuffix(srtPath, ".srt") + ".ass"
	if err := os.WriteFile(assPath, []byte(BuildASS(cues, style)), 0644); err != nil {
		return "", err
	}
	return assPath, nil
}
