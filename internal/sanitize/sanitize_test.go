package sanitize

import (
	"strings"
	"testing"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "myproject",
			expected: "myproject",
		},
		{
			name:     "uppercase conversion",
			input:    "MyProject",
			expected: "myproject",
		},
		{
			name:     "dots to underscores",
			input:    "github.com",
			expected: "github_com",
		},
		{
			name:     "slashes to underscores",
			input:    "user/repo",
			expected: "user_repo",
		},
		{
			name:     "special characters",
			input:    "my-project!@#$%",
			expected: "my_project",
		},
		{
			name:     "multiple underscores collapsed",
			input:    "foo___bar",
			expected: "foo_bar",
		},
		{
			name:     "leading/trailing underscores trimmed",
			input:    "_foo_bar_",
			expected: "foo_bar",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "default",
		},
		{
			name:     "only invalid chars",
			input:    "!!!",
			expected: "default",
		},
		{
			name:     "numbers preserved",
			input:    "project123",
			expected: "project123",
		},
		{
			name:     "underscores preserved",
			input:    "my_project",
			expected: "my_project",
		},
		{
			name:     "spaces to underscores",
			input:    "my project",
			expected: "my_project",
		},
		{
			name:     "parenthesized name",
			input:    "context (1)",
			expected: "context_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Identifier(tt.input)
			if result != tt.expected {
				t.Errorf("Identifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIdentifier_LengthLimit(t *testing.T) {
	// Test that long identifiers are truncated with hash
	longInput := strings.Repeat("a", 100)
	result := Identifier(longInput)

	if len(result) > MaxIdentifierLength {
		t.Errorf("Identifier should be <= %d chars, got %d", MaxIdentifierLength, len(result))
	}

	// Should end with hash suffix pattern _XXXXXXXX
	if !strings.Contains(result, "_") {
		t.Error("Truncated identifier should contain hash suffix")
	}
}

func TestIdentifier_LengthLimit_Uniqueness(t *testing.T) {
	// Different long inputs should produce different outputs
	input1 := strings.Repeat("a", 100)
	input2 := strings.Repeat("a", 99) + "b"

	result1 := Identifier(input1)
	result2 := Identifier(input2)

	if result1 == result2 {
		t.Error("Different inputs should produce different hashed outputs")
	}
}

func TestIdentifier_ExactlyMaxLength(t *testing.T) {
	// Input exactly at max length should not be truncated
	input := strings.Repeat("a", MaxIdentifierLength)
	result := Identifier(input)

	if result != input {
		t.Errorf("Input at max length should not be modified, got %q", result)
	}
}

func TestDirName(t *testing.T) {
	tests := []struct {
		name     string
		project  string
		id       string
		expected string
	}{
		{
			name:     "simple name with uuid",
			project:  "myproject",
			id:       "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d",
			expected: "myproject_5f0c2f6e",
		},
		{
			name:     "spaces and case",
			project:  "My Project",
			id:       "abcdef01-2345-6789-abcd-ef0123456789",
			expected: "my_project_abcdef01",
		},
		{
			name:     "missing id",
			project:  "myproject",
			id:       "",
			expected: "myproject",
		},
		{
			name:     "empty name falls back to default",
			project:  "",
			id:       "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d",
			expected: "default_5f0c2f6e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DirName(tt.project, tt.id)
			if result != tt.expected {
				t.Errorf("DirName(%q, %q) = %q, want %q",
					tt.project, tt.id, result, tt.expected)
			}
		})
	}
}

func TestDirName_Stable(t *testing.T) {
	// Same inputs always produce the same directory name
	a := DirName("My Project", "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d")
	b := DirName("My Project", "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d")

	if a != b {
		t.Errorf("DirName not stable: %q vs %q", a, b)
	}
}

func TestDirName_LengthLimit(t *testing.T) {
	// Very long name should still produce a valid directory name
	longName := strings.Repeat("a", 100)

	result := DirName(longName, "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d")

	if len(result) > MaxIdentifierLength {
		t.Errorf("DirName should be <= %d chars, got %d", MaxIdentifierLength, len(result))
	}
	if err := ValidateDirName(result); err != nil {
		t.Errorf("DirName produced invalid name: %v", err)
	}
}

func TestDirName_ValidChars(t *testing.T) {
	// Result should only contain valid chars
	result := DirName("my-project! (copy)", "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d")

	for _, r := range result {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
			t.Errorf("DirName contains invalid char %q in %q", string(r), result)
		}
	}
}
