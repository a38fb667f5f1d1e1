package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeGenerator_Generate(t *testing.T) {
	g := NewCodeGenerator(6)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if err := g.ValidateFormat(code); err != nil {
			t.Errorf("generated code %q failed validation: %v", code, err)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("Expected mostly unique codes, got %d distinct of 50", len(seen))
	}
}

func TestCodeGenerator_DefaultLength(t *testing.T) {
	code, err := NewCodeGenerator(0).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	assert.Len(t, code, DefaultCodeLength)
}

func TestCodeGenerator_Hash(t *testing.T) {
	g := NewCodeGenerator(6)

	h := g.Hash("ada@example.com", "123456")
	assert.Len(t, h, 64)
	assert.Equal(t, h, g.Hash("ada@example.com", " 123456 "))
	assert.NotEqual(t, h, g.Hash("grace@example.com", "123456"), "hash must be bound to the email")

	assert.True(t, g.Matches("ada@example.com", "123456", h))
	assert.False(t, g.Matches("ada@example.com", "123457", h))
}

func TestCodeGenerator_ValidateFormat(t *testing.T) {
	g := NewCodeGenerator(6)
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"123456", false},
		{"000000", false},
		{"12345", true},
		{"1234567", true},
		{"12a456", true},
		{"", true},
	}
	for _, tt := range tests {
		err := g.ValidateFormat(tt.code)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
		}
	}
}
