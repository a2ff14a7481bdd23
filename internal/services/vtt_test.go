package services

import (
	"errors"
	"testing"
)

func TestValidateVTT(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    error
	}{
		{"minimal", "WEBVTT\n\n00:00.000 --> 00:02.500\nHi\n", nil},
		{"hours", "WEBVTT\n\n01:00:00.000 --> 01:00:02.000\nLate\n", nil},
		{"leading whitespace and bom", "\ufeff  \nWEBVTT\n\n00:01.000 --> 00:02.000\nx", nil},
		{"missing header", "00:00.000 --> 00:02.000\nHi\n", ErrVTTMissingHeader},
		{"srt", "1\n00:00:00,000 --> 00:00:02,000\nHi\n", ErrVTTMissingHeader},
		{"no cues", "WEBVTT\n\nNOTE nothing here\n", ErrVTTNoCues},
		{"empty", "", ErrVTTMissingHeader},
		{"bad cue separator", "WEBVTT\n\n00:00.000->00:02.000\n", ErrVTTNoCues},
		{"cue settings", "WEBVTT\n\n00:01.000 --> 00:02.000 align:start line:0\nx\n", nil},
		{"crlf", "WEBVTT\r\n\r\n00:01.000 --> 00:02.000\r\nx\r\n", nil},
		{"timing split across lines", "WEBVTT\n\n00:00.000\n-->\n00:02.000\n", ErrVTTNoCues},
		{"timing inside cue text", "WEBVTT\n\nNOTE see 00:00.000 --> 00:02.000 later\n", ErrVTTNoCues},
		{"end equals start", "WEBVTT\n\n00:02.000 --> 00:02.000\nx\n", ErrVTTNoCues},
		{"end before start", "WEBVTT\n\n00:05.000 --> 00:02.000\nx\n", ErrVTTNoCues},
		{"seconds out of range", "WEBVTT\n\n00:00.000 --> 00:75.000\nx\n", ErrVTTNoCues},
		{"one good cue after a bad one", "WEBVTT\n\n00:05.000 --> 00:02.000\nx\n\n00:06.000 --> 01:00:00.000\ny\n", nil},
	}
	for _, tc := range cases {
		err := ValidateVTT(tc.content)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestVTTErrorMessages(t *testing.T) {
	if ErrVTTMissingHeader.Error() != `The file must be a valid VTT format and start with "WEBVTT".` {
		t.Fatalf("header message: %q", ErrVTTMissingHeader.Error())
	}
	if ErrVTTNoCues.Error() != "The VTT content does not contain any valid timestamp cues." {
		t.Fatalf("cue message: %q", ErrVTTNoCues.Error())
	}
}
