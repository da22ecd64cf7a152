package subtitle_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/subtitle"
)

func TestToASSColor(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"#ffffff", "&H00FFFFFF"},
		{"#000000", "&H00000000"},
		{"#ff0000", "&H000000FF"}, // red: BGR order
		{"#0000ff", "&H00FF0000"}, // blue
		{"#12ab34", "&H0034AB12"},
		{"", "&H00FFFFFF"},
		{"#fff", "&HA0000000"}, // malformed
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, subtitle.ToASSColor(tt.hex), "hex=%s", tt.hex)
	}
}

func TestStyleFromDictIgnoresUnknownKeys(t *testing.T) {
	style := subtitle.StyleFromDict(model.Dict{
		"fontSize":     float64(48),
		"primaryColor": "#ff0000",
		"alignment":    float64(10),
		"borderStyle":  float64(3),
		"futureKnob":   "ignored",
		"nested":       map[string]any{"x": 1},
	})
	require.Equal(t, 48, style.FontSize)
	require.Equal(t, "#ff0000", style.PrimaryColor)
	require.Equal(t, 10, style.Alignment)
	require.Equal(t, 3, style.BorderStyle)
	// defaults survive for unspecified keys
	require.Equal(t, "Arial Black", style.FontName)
}

func TestBuildASSStyleLine(t *testing.T) {
	cues := []subtitle.Cue{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "hello world"},
	}

	script := subtitle.BuildASS(cues, subtitle.Style{
		FontName:     "Impact",
		FontSize:     40,
		PrimaryColor: "#ffffff",
		OutlineColor: "#000000",
		Alignment:    10,
		BorderStyle:  1,
	})

	require.Contains(t, script, "[Script Info]")
	require.Contains(t, script, "ScaledBorderAndShadow: yes")
	// alignment 10 (middle-center UI) remaps to ASS 5; border style 1 keeps outline width 2
	require.Contains(t, script, "Style: Default,Impact,40,&H00FFFFFF,&H000000FF,&H00000000,&HA0000000,1,0,0,0,100,100,0,0,1,2,0,5,10,10,20,1")
	require.Contains(t, script, "Dialogue: 0,0:00:00.00,0:00:02.00,Default,,0,0,0,,HELLO WORLD")
}

func TestBuildASSOpaqueBox(t *testing.T) {
	script := subtitle.BuildASS(nil, subtitle.Style{
		FontName:        "Arial",
		FontSize:        32,
		BackgroundColor: "#00ff00",
		Alignment:       6,
		BorderStyle:     3,
	})

	// box style zeroes the outline width and carries the background color
	require.Contains(t, script, ",&H0000FF00,1,0,0,0,100,100,0,0,3,0,0,8,")
}

func TestCreateASSFile(t *testing.T) {
	srtPath := filepath.Join(t.TempDir(), "caption.srt")
	require.NoError(t, subtitle.WriteSRT([]subtitle.Segment{
		{Start: 0, End: 1.25, Text: "first cue"},
	}, srtPath, false))

	assPath, err := subtitle.CreateASSFile(srtPath, subtitle.DefaultStyle())
	require.NoError(t, err)
	require.Equal(t, strings.TrimSuffix(srtPath, ".srt")+".ass", assPath)

	cues, err := subtitle.ParseSRTFile(srtPath)
	require.NoError(t, err)
	require.Len(t, cues, 1)
}
