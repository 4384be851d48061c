package transcript

import "testing"

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59.99, "00:00:59"},
		{80.54, "00:01:20"},
		{3600, "01:00:00"},
		{3725.4, "01:02:05"},
		{36000 + 61, "10:01:01"},
		{-3, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	segments := []Segment{
		{Start: 70.52, End: 75.68, Speaker: "SPEAKER_00", Text: "We train these models to spend more time thinking."},
		{Start: 75.84, End: 80.16, Speaker: "SPEAKER_01", Text: " Through training, they learn."},
		{Start: 81, End: 82, Text: "unattributed"},
	}
	want := "[00:01:10 - 00:01:15] SPEAKER_00: We train these models to spend more time thinking.\n" +
		"[00:01:15 - 00:01:20] SPEAKER_01:  Through training, they learn.\n" +
		"[00:01:21 - 00:01:22] None: unattributed\n"

	if got := Format(segments); got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
	if Format(nil) != "" {
		t.Error("Format(nil) should be empty")
	}
}

func TestWithSpeaker(t *testing.T) {
	in := []Segment{{Text: "a"}, {Text: "b", Speaker: "SPEAKER_02"}}
	out := WithSpeaker(in, DefaultSpeaker)

	if out[0].Speaker != DefaultSpeaker || out[1].Speaker != "SPEAKER_02" {
		t.Errorf("WithSpeaker() = %+v", out)
	}
	if in[0].Speaker != "" {
		t.Error("WithSpeaker() modified its input")
	}
}

func TestHasText(t *testing.T) {
	if HasText([]Segment{{Text: "  "}, {Text: "\n"}}) {
		t.Error("blank segments should not count as text")
	}
	if !HasText([]Segment{{Text: ""}, {Text: "hello"}}) {
		t.Error("expected text to be found")
	}
}
