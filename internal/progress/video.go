package progress

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

type VideoSource string

const (
	SourceLocal   VideoSource = "local"
	SourceYouTube VideoSource = "youtube"
	SourceVimeo   VideoSource = "vimeo"
)

// Embedded reports whether the source plays inside a third-party
// frame, where only coarse player events are observable.
func (s VideoSource) Embedded() bool {
	return s == SourceYouTube || s == SourceVimeo
}

// VideoInfo is the classified form of a lesson's video URL, resolved
// once per lesson payload.
type VideoInfo struct {
	Source      VideoSource `json:"source"`
	VideoID     string      `json:"videoId,omitempty"`
	PlaybackURL string      `json:"playbackUrl"`
}

var (
	youtubeRe = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	vimeoRe   = regexp.MustCompile(`vimeo\.com/(\d+)`)
)

// ClassifyVideoURL maps recognized provider URLs to an embeddable
// player URL and treats any other well-formed URL as direct local
// media. Malformed input is an explicit error, never a silent
// fallback.
func ClassifyVideoURL(raw string, autoplay bool) (*VideoInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrBadVideoURL
	}

	auto := 0
	if autoplay {
		auto = 1
	}

	if m := youtubeRe.FindStringSubmatch(raw); m != nil {
		return &VideoInfo{
			Source:  SourceYouTube,
			VideoID: m[1],
			PlaybackURL: fmt.Sprintf(
				"https://www.youtube.com/embed/%s?autoplay=%d&rel=0&modestbranding=1&controls=1&disablekb=1&fs=1&iv_load_policy=3",
				m[1], auto),
		}, nil
	}

	if m := vimeoRe.FindStringSubmatch(raw); m != nil {
		return &VideoInfo{
			Source:  SourceVimeo,
			VideoID: m[1],
			PlaybackURL: fmt.Sprintf(
				"https://player.vimeo.com/video/%s?autoplay=%d&title=0&byline=0&portrait=0&controls=1&disablekb=1&dnt=1",
				m[1], auto),
		}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrBadVideoURL
	}
	if u.IsAbs() && u.Host == "" {
		return nil, ErrBadVideoURL
	}
	if !u.IsAbs() && !strings.HasPrefix(raw, "/") {
		return nil, ErrBadVideoURL
	}
	return &VideoInfo{Source: SourceLocal, PlaybackURL: raw}, nil
}

// PlayerEvent is a coarse state-change message from an embedded
// third-party player.
type PlayerEvent string

const (
	PlayerPlaying  PlayerEvent = "playing"
	PlayerPaused   PlayerEvent = "paused"
	PlayerFinished PlayerEvent = "finished"
)

// VideoTracker converts playback observations into the onProgress /
// onComplete contract shared by both variants. Local media reports
// continuous positions; an embedded player only reports events, so
// onProgress never fires for it and downstream code must tolerate
// percent-less completion.
type VideoTracker struct {
	mu         sync.Mutex
	info       *VideoInfo
	duration   float64
	percent    float64
	playing    bool
	completed  bool
	onProgress func(percent float64)
	onComplete func()
}

// NewVideoTracker wires a classified video to its observers. duration
// is the media length in seconds, known for local uploads from the
// probe at upload time; it is ignored for embedded sources.
func NewVideoTracker(info *VideoInfo, durationSeconds float64, onProgress func(float64), onComplete func()) *VideoTracker {
	return &VideoTracker{
		info:       info,
		duration:   durationSeconds,
		onProgress: onProgress,
		onComplete: onComplete,
	}
}

// Position ingests a playback position for local media, in seconds.
func (t *VideoTracker) Position(currentSeconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.info.Source.Embedded() || t.duration <= 0 {
		return
	}

	percent := currentSeconds / t.duration * 100
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	t.percent = percent

	if t.onProgress != nil {
		t.onProgress(percent)
	}
	if percent >= VideoDoneThreshold && !t.completed {
		t.completed = true
		if t.onComplete != nil {
			t.onComplete()
		}
	}
}

// Ended handles the native end-of-media signal. It fires onComplete
// even when the threshold crossing already did; downstream effects are
// idempotent by contract.
func (t *VideoTracker) Ended() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.info.Source.Embedded() {
		return
	}
	t.completed = true
	t.playing = false
	if t.onComplete != nil {
		t.onComplete()
	}
}

// HandlePlayerEvent ingests a state-change message from an embedded
// player. A finished message is the only completion signal available
// for this variant.
func (t *VideoTracker) HandlePlayerEvent(ev PlayerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.info.Source.Embedded() {
		return
	}
	switch ev {
	case PlayerPlaying:
		t.playing = true
	case PlayerPaused:
		t.playing = false
	case PlayerFinished:
		t.playing = false
		t.completed = true
		if t.onComplete != nil {
			t.onComplete()
		}
	}
}

func (t *VideoTracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

func (t *VideoTracker) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

func (t *VideoTracker) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}
