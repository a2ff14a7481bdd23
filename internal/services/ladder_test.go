package services

import "testing"

func TestPlanStrictlyBelowSource(t *testing.T) {
	ladder, err := LoadLadder("")
	if err != nil {
		t.Fatalf("LoadLadder: %v", err)
	}
	p := NewRenditionPlanner(ladder)
	cases := []struct {
		height int
		want   []int
	}{
		{0, nil},
		{-5, nil},
		{360, nil},
		{480, []int{360}},
		{720, []int{480, 360}},
		{1080, []int{720, 480, 360}},
		{2160, []int{1080, 720, 480, 360}},
	}
	for _, tc := range cases {
		got := p.Plan(tc.height)
		if len(got) != len(tc.want) {
			t.Fatalf("Plan(%d): got %d rungs, want %d", tc.height, len(got), len(tc.want))
		}
		for i, r := range got {
			if r.Height != tc.want[i] {
				t.Fatalf("Plan(%d)[%d]: height=%d want %d", tc.height, i, r.Height, tc.want[i])
			}
		}
	}
}

func TestDefaultLadderValues(t *testing.T) {
	ladder, err := LoadLadder("")
	if err != nil {
		t.Fatalf("LoadLadder: %v", err)
	}
	want := []Rung{
		{Label: "1080p", Width: 1920, Height: 1080, Bitrate: 5000000},
		{Label: "720p", Width: 1280, Height: 720, Bitrate: 2800000},
		{Label: "480p", Width: 854, Height: 480, Bitrate: 1400000},
		{Label: "360p", Width: 640, Height: 360, Bitrate: 800000},
	}
	if len(ladder) != len(want) {
		t.Fatalf("ladder has %d rungs", len(ladder))
	}
	for i := range want {
		if ladder[i] != want[i] {
			t.Fatalf("rung %d: got %+v want %+v", i, ladder[i], want[i])
		}
	}
}

func TestParseLadderRejectsBadRungs(t *testing.T) {
	bad := []string{
		"renditions: []",
		"renditions:\n  - {width: 0, height: 360, bitrate: 1}",
		"renditions:\n  - {width: 640, height: 360, bitrate: 1}\n  - {width: 641, height: 360, bitrate: 2}",
		"not: [valid",
	}
	for _, raw := range bad {
		if _, err := ParseLadder([]byte(raw)); err == nil {
			t.Fatalf("ParseLadder(%q): expected error", raw)
		}
	}
	got, err := ParseLadder([]byte("renditions:\n  - {width: 640, height: 360, bitrate: 1}\n  - {width: 1280, height: 720, bitrate: 2}"))
	if err != nil {
		t.Fatalf("ParseLadder: %v", err)
	}
	if got[0].Height != 720 || got[1].Label != "360p" {
		t.Fatalf("ParseLadder: %+v", got)
	}
}
