package media

type MediaStatus string

const (
	MediaStatusProcessing MediaStatus = "Processing"
	MediaStatusPublished  MediaStatus = "Published"
	MediaStatusFailed     MediaStatus = "Failed"
)

var mediaTransitions = map[MediaStatus][]MediaStatus{
	MediaStatusProcessing: {MediaStatusPublished, MediaStatusFailed},
}

// CanTransition reports whether the pipeline may move a record from one status to another.
// Published and Failed are terminal; a re-run goes through Restart.
func (s MediaStatus) CanTransition(to MediaStatus) bool {
	for _, next := range mediaTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// MediaTransitionSources lists every status that may move to the given target.
func MediaTransitionSources(to MediaStatus) []MediaStatus {
	out := []MediaStatus{}
	for from, nexts := range mediaTransitions {
		for _, n := range nexts {
			if n == to {
				out = append(out, from)
			}
		}
	}
	return out
}

func (s MediaStatus) Terminal() bool {
	return s == MediaStatusPublished || s == MediaStatusFailed
}

// CanRestart reports whether an admin may start a new pipeline run from s.
func (s MediaStatus) CanRestart() bool { return s.Terminal() }
