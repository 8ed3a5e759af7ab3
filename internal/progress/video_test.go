package progress

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyVideoURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		source  VideoSource
		videoID string
		wantErr bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", SourceYouTube, "dQw4w9WgXcQ", false},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", SourceYouTube, "dQw4w9WgXcQ", false},
		{"youtube embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", SourceYouTube, "dQw4w9WgXcQ", false},
		{"vimeo", "https://vimeo.com/76979871", SourceVimeo, "76979871", false},
		{"local absolute", "https://cdn.example.com/media/lesson-4.mp4", SourceLocal, "", false},
		{"local path", "/uploads/videos/lesson-4.mp4", SourceLocal, "", false},
		{"empty", "", "", "", true},
		{"whitespace only", "   ", "", "", true},
		{"relative without slash", "lesson-4.mp4", "", "", true},
		{"scheme without host", "https://", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ClassifyVideoURL(tt.raw, false)
			if tt.wantErr {
				if !errors.Is(err, ErrBadVideoURL) {
					t.Fatalf("err = %v, want ErrBadVideoURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.Source != tt.source {
				t.Errorf("source = %q, want %q", info.Source, tt.source)
			}
			if info.VideoID != tt.videoID {
				t.Errorf("videoID = %q, want %q", info.VideoID, tt.videoID)
			}
			if info.PlaybackURL == "" {
				t.Error("empty playback URL")
			}
		})
	}
}

func TestClassifyVideoURLAutoplayParam(t *testing.T) {
	info, err := ClassifyVideoURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ", true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(info.PlaybackURL, "autoplay=1") {
		t.Errorf("playback URL %q missing autoplay=1", info.PlaybackURL)
	}
	info, err = ClassifyVideoURL("https://vimeo.com/76979871", false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(info.PlaybackURL, "autoplay=0") {
		t.Errorf("playback URL %q missing autoplay=0", info.PlaybackURL)
	}
}

func TestLocalTrackerThresholdFiresOnce(t *testing.T) {
	info, err := ClassifyVideoURL("/uploads/videos/lesson.mp4", false)
	if err != nil {
		t.Fatal(err)
	}
	var progressCalls []float64
	completions := 0
	tr := NewVideoTracker(info, 100, func(p float64) { progressCalls = append(progressCalls, p) }, func() { completions++ })

	tr.Position(50)
	if completions != 0 {
		t.Fatal("completion fired below the threshold")
	}
	tr.Position(91)
	if completions != 1 {
		t.Fatalf("completions = %d after crossing the threshold, want 1", completions)
	}
	tr.Position(95)
	if completions != 1 {
		t.Fatalf("completions = %d after a later position, want still 1", completions)
	}
	if len(progressCalls) != 3 {
		t.Fatalf("onProgress fired %d times, want 3", len(progressCalls))
	}
	if got := tr.Percent(); got != 95 {
		t.Errorf("percent = %v, want 95", got)
	}
}

func TestLocalTrackerEndedFiresCompleteAgain(t *testing.T) {
	info, _ := ClassifyVideoURL("/uploads/videos/lesson.mp4", false)
	completions := 0
	tr := NewVideoTracker(info, 100, nil, func() { completions++ })

	tr.Position(92)
	tr.Ended()
	// Both paths fire; the downstream aggregator tolerates repeats.
	if completions != 2 {
		t.Fatalf("completions = %d, want 2", completions)
	}
	if !tr.Completed() {
		t.Fatal("tracker not marked completed after Ended")
	}
}

func TestEmbeddedTrackerNeverReportsProgress(t *testing.T) {
	info, err := ClassifyVideoURL("https://youtu.be/dQw4w9WgXcQ", false)
	if err != nil {
		t.Fatal(err)
	}
	progressed := false
	completions := 0
	tr := NewVideoTracker(info, 0, func(float64) { progressed = true }, func() { completions++ })

	tr.Position(50)
	tr.Ended()
	if progressed || completions != 0 {
		t.Fatal("local-media paths acted on an embedded source")
	}

	tr.HandlePlayerEvent(PlayerPlaying)
	if !tr.Playing() {
		t.Fatal("playing event not reflected")
	}
	tr.HandlePlayerEvent(PlayerPaused)
	if tr.Playing() {
		t.Fatal("paused event not reflected")
	}
	tr.HandlePlayerEvent(PlayerFinished)
	if completions != 1 {
		t.Fatalf("completions = %d after finished event, want 1", completions)
	}
	if progressed {
		t.Fatal("onProgress fired for an embedded source")
	}
	if tr.Playing() {
		t.Fatal("still playing after finished event")
	}
}

func TestLocalTrackerClampsOutOfRangePositions(t *testing.T) {
	info, _ := ClassifyVideoURL("/uploads/videos/lesson.mp4", false)
	tr := NewVideoTracker(info, 100, nil, nil)
	tr.Position(250)
	if got := tr.Percent(); got != 100 {
		t.Errorf("percent = %v, want clamped to 100", got)
	}
	tr.Position(-5)
	if got := tr.Percent(); got != 0 {
		t.Errorf("percent = %v, want clamped to 0", got)
	}
}
