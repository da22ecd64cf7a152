package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanAspectExact916ScalesOnly(t *testing.T) {
	// Exact 9:16 sources scale with no crop and no pad.
	for _, dims := range [][2]int{{1080, 1920}, {720, 1280}, {540, 960}} {
		plan, err := PlanAspect(dims[0], dims[1])
		require.NoError(t, err)
		require.Equal(t, ModeScale, plan.Mode, "%dx%d", dims[0], dims[1])
		require.Equal(t, "scale=1080:1920:flags=lanczos", plan.Filter)
	}
}

func TestPlanAspectWiderSourceCrops(t *testing.T) {
	// 16:9 1280x720: crop to 9:16 around the center, then scale.
	plan, err := PlanAspect(1280, 720)
	require.NoError(t, err)
	require.Equal(t, ModeCrop, plan.Mode)
	// 720 * 9/16 = 405 wide, centered at (1280-405)/2 = 437
	require.Equal(t, "crop=405:720:437:0,scale=1080:1920:flags=lanczos", plan.Filter)
}

func TestPlanAspectTallerSourcePads(t *testing.T) {
	// 1:2 source is narrower than 9:16: fit inside the frame, pad centered.
	plan, err := PlanAspect(500, 1000)
	require.NoError(t, err)
	require.Equal(t, ModePad, plan.Mode)
	require.Equal(t, "scale=1080:1920:force_original_aspect_ratio=decrease:flags=lanczos,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black", plan.Filter)
}

func TestPlanAspectRejectsBadDimensions(t *testing.T) {
	_, err := PlanAspect(0, 1080)
	require.Error(t, err)
	_, err = PlanAspect(1920, -1)
	require.Error(t, err)
}

func TestFormatSeconds(t *testing.T) {
	require.Equal(t, "8.000", formatSeconds(8))
	require.Equal(t, "12.345", formatSeconds(12.345))
}

func TestIsFontError(t *testing.T) {
	require.True(t, IsFontError("[Parsed_subtitles_0] fontselect: failed to find any fallback"))
	require.True(t, IsFontError("Fontconfig error: Cannot load default config file"))
	require.False(t, IsFontError("Error opening input file"))
	require.False(t, IsFontError(""))
}

func TestStderrTail(t *testing.T) {
	require.Equal(t, "a | b", stderrTail("a\nb"))
	require.Equal(t, "c | d | e | f | g", stderrTail("a\nb\nc\nd\ne\nf\ng"))
}
