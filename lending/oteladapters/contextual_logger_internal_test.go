package oteladapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_logAttributes(t *testing.T) {
	attrs := logAttributes([]any{"loan_id", "l-1", "attempts", 3, 7, "ignored", "delay", 5 * time.Millisecond, "dangling"})

	assert.Len(t, attrs, 3)
	assert.Equal(t, "loan_id", attrs[0].Key)
	assert.Equal(t, "l-1", attrs[0].Value.AsString())
	assert.Equal(t, "attempts", attrs[1].Key)
	assert.Equal(t, "3", attrs[1].Value.AsString())
	assert.Equal(t, "delay", attrs[2].Key)
	assert.Equal(t, "5ms", attrs[2].Value.AsString())
}
