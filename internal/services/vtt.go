package services

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrVTTMissingHeader = errors.New(`The file must be a valid VTT format and start with "WEBVTT".`)
	ErrVTTNoCues        = errors.New("The VTT content does not contain any valid timestamp cues.")
)

// EmptyVTT is served when a media record has no approved caption.
const EmptyVTT = "WEBVTT\n\n"

// A cue timing line: start --> end, optionally followed by cue settings.
var vttCue = regexp.MustCompile(`^((?:\d{2,}:)?\d{2}:\d{2}\.\d{3})[ \t]+-->[ \t]+((?:\d{2,}:)?\d{2}:\d{2}\.\d{3})(?:[ \t].*)?$`)

// ValidateVTT accepts a WebVTT document that has the header and at least one timed cue
// whose end is after its start.
func ValidateVTT(content string) error {
	body := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	if !strings.HasPrefix(body, "WEBVTT") {
		return ErrVTTMissingHeader
	}
	for _, line := range strings.Split(body, "\n") {
		m := vttCue.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		start, ok := parseVTTTimestamp(m[1])
		if !ok {
			continue
		}
		end, ok := parseVTTTimestamp(m[2])
		if ok && end > start {
			return nil
		}
	}
	return ErrVTTNoCues
}

// parseVTTTimestamp reads [hh:]mm:ss.ttt. Minutes and seconds must be below 60.
func parseVTTTimestamp(raw string) (time.Duration, bool) {
	parts := strings.Split(raw, ":")
	var hours int
	if len(parts) == 3 {
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		hours, parts = h, parts[1:]
	}
	mins, err := strconv.Atoi(parts[0])
	if err != nil || mins > 59 {
		return 0, false
	}
	secStr, msStr, _ := strings.Cut(parts[1], ".")
	secs, err := strconv.Atoi(secStr)
	if err != nil || secs > 59 {
		return 0, false
	}
	ms, err := strconv.Atoi(msStr)
	if err != nil {
		return 0, false
	}
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second + time.Duration(ms)*time.Millisecond, true
}
