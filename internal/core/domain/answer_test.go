package domain

import (
	"errors"
	"testing"
)

func TestAskValidate(t *testing.T) {
	tests := []struct {
		name    string
		ask     Ask
		wantErr bool
	}{
		{"valid", Ask{Question: "Qual o TRL atual?"}, false},
		{"empty question", Ask{Question: ""}, true},
		{"whitespace question", Ask{Question: "   \n"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ask.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUploadSliceValidate(t *testing.T) {
	tests := []struct {
		name    string
		slice   UploadSlice
		wantErr bool
	}{
		{"valid", UploadSlice{TechnologyID: "t1", Filename: "a.pdf", ChunkIndex: 0}, false},
		{"missing technology", UploadSlice{Filename: "a.pdf"}, true},
		{"missing filename", UploadSlice{TechnologyID: "t1"}, true},
		{"path traversal", UploadSlice{TechnologyID: "t1", Filename: "../etc/passwd"}, true},
		{"backslash", UploadSlice{TechnologyID: "t1", Filename: "a\\b.txt"}, true},
		{"negative index", UploadSlice{TechnologyID: "t1", Filename: "a.pdf", ChunkIndex: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slice.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
