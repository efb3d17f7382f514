package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{name: "nil context", ctx: nil, version: UnknownValue, buildDate: UnknownValue},
		{name: "empty", ctx: NewContext("", ""), version: UnknownValue, buildDate: UnknownValue},
		{name: "set", ctx: NewContext("1.0.0", "2026-01-02"), version: "1.0.0", buildDate: "2026-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
		})
	}
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "1.0.0 (built 2026-01-02)", NewContext("1.0.0", "2026-01-02").String())
	assert.Equal(t, "dev (built unknown)", NewContext("dev", "").String())
}
