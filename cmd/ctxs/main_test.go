package main

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "string shorter than max",
			input:  "hello",
			maxLen: 10,
			want:   "hello",
		},
		{
			name:   "string equal to max",
			input:  "hello",
			maxLen: 5,
			want:   "hello",
		},
		{
			name:   "string longer than max",
			input:  "hello world",
			maxLen: 8,
			want:   "hello...",
		},
		{
			name:   "empty string",
			input:  "",
			maxLen: 10,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "png image",
			path: "./diagram.png",
			want: "image/png",
		},
		{
			name: "jpeg image",
			path: "photo.jpeg",
			want: "image/jpeg",
		},
		{
			name: "uppercase extension",
			path: "SHOT.PNG",
			want: "image/png",
		},
		{
			name: "text file strips charset",
			path: "notes.txt",
			want: "text/plain",
		},
		{
			name: "no extension",
			path: "Makefile",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectMIME(tt.path)
			if got != tt.want {
				t.Errorf("detectMIME(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestContextFileURL(t *testing.T) {
	serverURL = "http://localhost:9091"

	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{
			name:     "plain name",
			fileName: "notes.md",
			want:     "http://localhost:9091/api/v1/projects/p1/context/notes.md",
		},
		{
			name:     "name with spaces and parens",
			fileName: "context (1).md",
			want:     "http://localhost:9091/api/v1/projects/p1/context/context%20%281%29.md",
		},
		{
			name:     "name with slash stays one segment",
			fileName: "a/b.md",
			want:     "http://localhost:9091/api/v1/projects/p1/context/a%2Fb.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contextFileURL("p1", tt.fileName)
			if got != tt.want {
				t.Errorf("contextFileURL(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}
}
