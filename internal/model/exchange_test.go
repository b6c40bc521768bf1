package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchangeSources(t *testing.T) {
	var e Exchange
	assert.Nil(t, e.SourceList())

	e.SetSources(nil)
	assert.Equal(t, "[]", e.Sources)
	assert.Empty(t, e.SourceList())

	e.SetSources([]string{"a", `quote "b"`})
	assert.Equal(t, []string{"a", `quote "b"`}, e.SourceList())

	e.Sources = "not json"
	assert.Nil(t, e.SourceList())
}
