package localmedia

import "testing"

func TestParseDimensions(t *testing.T) {
	cases := []struct {
		in      string
		want    Dimensions
		wantErr bool
	}{
		{in: "1920x1080\n", want: Dimensions{Width: 1920, Height: 1080}},
		{in: "1280x720x\n", want: Dimensions{Width: 1280, Height: 720}},
		{in: "640x360\n854x480\n", want: Dimensions{Width: 640, Height: 360}},
		{in: "", wantErr: true},
		{in: "N/A", wantErr: true},
		{in: "abcxdef", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseDimensions(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseDimensions(%q): expected error, got %+v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDimensions(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDimensions(%q): want=%+v got=%+v", tc.in, tc.want, got)
		}
	}
}
