package prompt

import (
	"strconv"
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	transcript := "[00:00:00 - 00:00:03] SPEAKER_00: Hello there.\n"

	got, err := Build(Data{
		Channel:     "OpenAI",
		Title:       "Introducing o1",
		Views:       "1048576",
		Likes:       "4096",
		Description: "Reasoning models.",
		VideoURL:    url,
		Transcript:  transcript,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !strings.HasPrefix(got, "1.Read the following video transcript carefully") {
		t.Errorf("prompt starts with %q", got[:40])
	}
	block := "<video_details>\nChannel name: OpenAI\nVideo title: Introducing o1\nView count: 1048576\nLikes count: 4096\n" +
		"Description: Reasoning models.\nVideo URL: " + url + "\nTranscript: \n" + transcript + "\n</video_details>"
	if !strings.Contains(got, block) {
		t.Errorf("video details block not rendered as expected:\n%s", got[:600])
	}
	if !strings.Contains(got, "e. Format the full link as: [H:MM:SS]("+url+"&t=X) (e.g. [0:14:18]("+url+"&t=856) )") {
		t.Error("timestamp link instructions do not reference the video URL")
	}
	if !strings.HasSuffix(got, "13. Provide your final video summary, ready for publication. Use all known Markdown operators to present the output.") {
		t.Errorf("prompt ends with %q", got[len(got)-80:])
	}
	for step := 1; step <= 13; step++ {
		marker := "\n" + strconv.Itoa(step) + ". "
		if step == 1 {
			marker = "1.Read"
		}
		if !strings.Contains(got, marker) {
			t.Errorf("step %d missing", step)
		}
	}
}

func TestBuildFillsUnknowns(t *testing.T) {
	got, err := Build(Data{VideoURL: "https://youtu.be/dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, want := range []string{
		"Channel name: Unknown\n",
		"Video title: Unknown\n",
		"View count: Unknown\n",
		"Likes count: Unknown\n",
		"Description: Unknown\n",
		"Transcript: \nTranscription failed\n</video_details>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildKeepsTemplateLikeText(t *testing.T) {
	got, err := Build(Data{Title: "Go {{templates}} & <html>", Transcript: "x"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(got, "Video title: Go {{templates}} & <html>\n") {
		t.Error("title was altered during rendering")
	}
}
