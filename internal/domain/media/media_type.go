package media

import "strings"

// MediaType is the artifact variant. It decides which pipeline stages apply.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
	MediaTypePDF   MediaType = "pdf"
	MediaTypeDoc   MediaType = "doc"
)

// MediaTypeFromMIME maps a sniffed MIME type onto a variant. Anything unrecognised is a doc.
func MediaTypeFromMIME(mime string) MediaType {
	m := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(m, ";"); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch {
	case strings.HasPrefix(m, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(m, "image/"):
		return MediaTypeImage
	case m == "application/pdf":
		return MediaTypePDF
	default:
		return MediaTypeDoc
	}
}

func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeVideo, MediaTypeImage, MediaTypePDF, MediaTypeDoc:
		return true
	default:
		return false
	}
}

// NeedsTranscoding reports whether the variant goes through the rendition ladder.
func (t MediaType) NeedsTranscoding() bool { return t == MediaTypeVideo }

// NeedsProbe reports whether source dimensions are read before planning.
func (t MediaType) NeedsProbe() bool { return t == MediaTypeVideo }

// SupportsCaptions reports whether caption requests may be attached to the variant.
func (t MediaType) SupportsCaptions() bool { return t == MediaTypeVideo }

// StoragePrefix is the top-level folder for the variant, e.g. "videos".
func (t MediaType) StoragePrefix() string { return string(t) + "s" }
