package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		wantVer   string
		wantBuilt string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty values", NewContext("", ""), UnknownValue, UnknownValue},
		{"pre-release", NewContext("1.0.0-beta.1", "2024-05-01"), "1.0.0-beta.1", "2024-05-01"},
		{"build metadata", NewContext("1.0.0+build.123", "2024-05-01T12:00:00Z"), "1.0.0+build.123", "2024-05-01T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVer, tt.ctx.Version())
			assert.Equal(t, tt.wantBuilt, tt.ctx.BuildDate())
		})
	}
}
