package handlers

import (
	"context"
	"path/filepath"

	"github.com/verticut/verticut/internal/jobs"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/subtitle"
)

// handleCaption transcribes a video and writes its SRT caption file.
//
// Progress map: 10% model load, 20-80% transcribe, 80-100% write.
func (d *Deps) handleCaption(ctx context.Context, job *model.Job, progress jobs.ProgressFunc) (model.Dict, error) {
	input := job.InputData
	modelSize := dictStr(input, "model_size")
	wordLevel := dictBool(input, "word_level")

	video, videoPath, err := d.resolveVideo(job.VideoID)
	if err != nil {
		return nil, err
	}

	progress(10, "Loading transcription model...")
	if _, err := d.Transcriber.AcquireModel(ctx, modelSize); err != nil {
		return nil, err
	}

	progress(20, "Transcribing audio...")
	segments, err := d.Transcriber.Transcribe(ctx, videoPath, modelSize, wordLevel)
	if err != nil {
		return nil, err
	}

	if err := d.checkCancelled(job.ID); err != nil {
		return nil, err
	}

	progress(80, "Writing caption file...")
	captionName := baseName(video.Filename) + ".srt"
	captionPath := filepath.Join(d.Resolver.Dirs().Captions, captionName)
	if err := subtitle.WriteSRT(segments, captionPath, wordLevel); err != nil {
		return nil, err
	}

	caption, err := d.Repos.Captions.Create(video.ID, captionName, "en", model.FormatSRT, nil)
	if err != nil {
		return nil, err
	}

	return model.Dict{"caption_id": caption.ID, "filename": captionName}, nil
}
