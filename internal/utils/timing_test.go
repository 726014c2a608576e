package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	OperationTimer("fast", time.Hour, log)()
	assert.Contains(t, buf.String(), `"operation":"fast"`)
	assert.Contains(t, buf.String(), "Operation completed")

	buf.Reset()
	stop := OperationTimer("slow", time.Nanosecond, log)
	time.Sleep(time.Millisecond)
	stop()
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "Slow operation detected")
}
