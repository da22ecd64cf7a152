package handlers

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/repo"
)

// handleSplitScenes cuts a video at detected scene boundaries, registering
// one clip per scene. No detected boundaries is a successful zero-clip run.
func (d *Deps) handleSplitScenes(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	minSceneLen := dictFloat(input, "min_scene_len", 2.0)
	threshold := dictFloat(input, "threshold", 3.0)

	video, videoPath, err := d.resolveVideo(job.VideoID)
	if err != nil {
		return nil, err
	}

	probe, err := d.Prober.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	frameRate := probe.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}
	minFrames := int(minSceneLen * frameRate)

	progress(10, "Detecting scenes...")
	scenes, err := d.Scenes.Detect(ctx, videoPath, threshold, minFrames)
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return model.Dict{"video_ids": []string{}, "count": 0}, nil
	}

	base := baseName(video.Filename)
	videoIDs := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		if err := d.checkCancelled(job.ID); err != nil {
			return nil, err
		}

		clipName := fmt.Sprintf("%s_clip_%d.mp4", base, i+1)
		clipPath := filepath.Join(d.Resolver.Dirs().Processed, clipName)

		if err := d.Encoder.Cut(ctx, videoPath, clipPath, scene.Start, scene.End-scene.Start); err != nil {
			return nil, err
		}

		clip, err := d.Repos.Videos.Create(repo.NewVideo{
			ProjectID:     video.ProjectID,
			Title:         fmt.Sprintf("Clip %d", i+1),
			Filename:      clipName,
			ParentVideoID: video.ID,
			IsClip:        true,
			Duration:      scene.End - scene.Start,
			SizeBytes:     fileSize(clipPath),
		})
		if err != nil {
			return nil, err
		}
		videoIDs = append(videoIDs, clip.ID)

		progress(10+int(float64(i+1)/float64(len(scenes))*70), fmt.Sprintf("Cutting clip %d/%d...", i+1, len(scenes)))
	}

	progress(90, "Finalizing...")
	return model.Dict{"video_ids": videoIDs, "count": len(videoIDs)}, nil
}

// handleSplitFixed cuts a video into fixed-interval segments. The final
// segment is clamped to the source duration.
func (d *Deps) handleSplitFixed(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	interval := dictFloat(input, "interval", 30)
	if interval <= 0 {
		return nil, jobs.Validationf("interval must be positive")
	}

	video, videoPath, err := d.resolveVideo(job.VideoID)
	if err != nil {
		return nil, err
	}

	probe, err := d.Prober.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	duration := probe.Seconds()
	if duration <= 0 {
		return nil, jobs.Tool("could not probe video duration", "", nil)
	}

	numClips := int(math.Ceil(duration / interval))
	base := baseName(video.Filename)

	progress(10, "Splitting video...")
	videoIDs := make([]string, 0, numClips)
	for i := 0; i < numClips; i++ {
		if err := d.checkCancelled(job.ID); err != nil {
			return nil, err
		}

		start := float64(i) * interval
		length := math.Min(interval, duration-start)

		clipName := fmt.Sprintf("%s_part_%d.mp4", base, i+1)
		clipPath := filepath.Join(d.Resolver.Dirs().Processed, clipName)

		if err := d.Encoder.Cut(ctx, videoPath, clipPath, start, length); err != nil {
			return nil, err
		}

		clip, err := d.Repos.Videos.Create(repo.NewVideo{
			ProjectID:     video.ProjectID,
			Title:         fmt.Sprintf("Part %d", i+1),
			Filename:      clipName,
			ParentVideoID: video.ID,
			IsClip:        true,
			Duration:      length,
			SizeBytes:     fileSize(clipPath),
		})
		if err != nil {
			return nil, err
		}
		videoIDs = append(videoIDs, clip.ID)

		progress(10+int(float64(i+1)/float64(numClips)*80), fmt.Sprintf("Cutting part %d/%d...", i+1, numClips))
	}

	return model.Dict{"video_ids": videoIDs, "count": len(videoIDs)}, nil
}
