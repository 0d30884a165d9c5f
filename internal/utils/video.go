package utils

import (
	"path/filepath"
	"strings"
)

// videoExtensions lists recognized video container extensions
var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".wmv":  true,
	".flv":  true,
	".ts":   true,
	".m2ts": true,
}

// directPlayExtensions lists containers browsers can play without
// server-side transcoding
var directPlayExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".webm": true,
	".mov":  true,
}

// IsVideoFile reports whether a filename has a recognized video
// container extension
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsDirectPlayable reports whether a filename belongs to the small
// allow-list of directly browser-playable containers
func IsDirectPlayable(name string) bool {
	return directPlayExtensions[strings.ToLower(filepath.Ext(name))]
}
