package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "no url", opts: Options{OutputPath: "out.png"}},
		{name: "no output", opts: Options{URL: "http://127.0.0.1/timeline"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Snapshot(context.Background(), tt.opts))
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	o := Options{URL: "http://x/timeline", OutputPath: "out.png"}
	assert.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}
