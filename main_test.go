package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLoop(t *testing.T) {
	in := strings.NewReader("What was AAPL's close?\n\n  \nthat day news\nexit\nignored\n")
	var out bytes.Buffer
	var asked []string

	err := chatLoop(in, &out, func(q string) string {
		asked = append(asked, q)
		return "answer " + q
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"What was AAPL's close?", "that day news"}, asked)
	assert.Contains(t, out.String(), "bot> answer that day news")
	assert.NotContains(t, out.String(), "ignored")
}

func TestChatLoop_EOF(t *testing.T) {
	var out bytes.Buffer
	err := chatLoop(strings.NewReader("hi"), &out, func(q string) string { return q })
	require.NoError(t, err)
	assert.Contains(t, out.String(), "bot> hi")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["ask"])
	assert.True(t, names["chat"])
	assert.True(t, names["reset"])
	assert.NotNil(t, root.PersistentFlags().Lookup("session"))
}
