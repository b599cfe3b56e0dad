package post

// Strategy is the publish primitive chosen for a post's resolved media.
type Strategy int

const (
	// StrategySinglePhoto publishes one photo with the caption attached.
	StrategySinglePhoto Strategy = iota
	// StrategyMultiPhoto uploads every photo unpublished, then creates
	// one feed post referencing all media handles.
	StrategyMultiPhoto
	// StrategySingleVideo publishes one video with the caption as its
	// description.
	StrategySingleVideo
	// StrategyVideoSequence publishes one full post per video, all with
	// the identical caption. The platform allows one video per post, so
	// multiple videos intentionally produce multiple remote posts.
	StrategyVideoSequence
)

func (s Strategy) String() string {
	switch s {
	case StrategySinglePhoto:
		return "single_photo"
	case StrategyMultiPhoto:
		return "multi_photo"
	case StrategySingleVideo:
		return "single_video"
	case StrategyVideoSequence:
		return "video_sequence"
	}
	return "unknown"
}

// SelectStrategy picks exactly one publish strategy. Videos always win
// over images; a post with both publishes only its videos. A post with
// no media at all cannot be published.
func SelectStrategy(images, videos []Source) (Strategy, error) {
	switch {
	case len(videos) == 1:
		return StrategySingleVideo, nil
	case len(videos) > 1:
		return StrategyVideoSequence, nil
	case len(images) == 1:
		return StrategySinglePhoto, nil
	case len(images) > 1:
		return StrategyMultiPhoto, nil
	}
	return 0, ErrNoMedia
}
