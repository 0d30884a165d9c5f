package utils

import "testing"

func TestIsVideoFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"Movie.Title.1080p.mkv", true},
		{"movie.MP4", true},
		{"episode.avi", true},
		{"sample.m2ts", true},
		{"cover.jpg", false},
		{"release.nfo", false},
		{"subs.srt", false},
		{"noextension", false},
	}

	for _, tc := range cases {
		if got := IsVideoFile(tc.name); got != tc.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsDirectPlayable(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"movie.mp4", true},
		{"Movie.M4V", true},
		{"clip.webm", true},
		{"trailer.mov", true},
		// mkv is a video container but needs the transcode path
		{"movie.mkv", false},
		{"movie.avi", false},
		{"movie.ts", false},
	}

	for _, tc := range cases {
		if got := IsDirectPlayable(tc.name); got != tc.want {
			t.Errorf("IsDirectPlayable(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
