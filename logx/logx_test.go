package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOutputRedirectsLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Info("DAG", "generated epoch ", 3)
	Warn("LIGHT", "slow build")

	out := buf.String()
	assert.Contains(t, out, "[INFO][DAG]")
	assert.Contains(t, out, "generated epoch 3")
	assert.Contains(t, out, "[WARN][LIGHT]")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestErrorfReturnsFormattedError(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	err := Errorf("bad seed %x", []byte{0xab})
	assert.EqualError(t, err, "bad seed ab")
	assert.Contains(t, buf.String(), "[ERROR][ERROR]")
}

func TestEnvIntFallsBack(t *testing.T) {
	t.Setenv("LOGX_TEST_INT", "abc")
	assert.Equal(t, 5, envInt("LOGX_TEST_INT", 5))

	t.Setenv("LOGX_TEST_INT", "12")
	assert.Equal(t, 12, envInt("LOGX_TEST_INT", 5))

	t.Setenv("LOGX_TEST_INT", "")
	assert.Equal(t, 5, envInt("LOGX_TEST_INT", 5))
}
