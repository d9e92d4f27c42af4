package telemetry

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrement(t *testing.T) {
	before := GetCounter("test_increment")
	Increment("test_increment", 2)
	Increment("test_increment", 1)
	assert.Equal(t, before+3, GetCounter("test_increment"))
}

func TestError_CountsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	before := GetCounter("errors")

	Error(errors.New("boom"), "loading %s", "stream")

	assert.Equal(t, before+1, GetCounter("errors"))
	assert.Contains(t, buf.String(), "loading stream")
	assert.Contains(t, buf.String(), "boom")
}

func TestTrace_Disabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	EnableTrace(false)
	Trace("hidden")
	assert.Empty(t, buf.String())

	EnableTrace(true)
	defer EnableTrace(false)
	Trace("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRequest(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	r := httptest.NewRequest("GET", "http://node.example/api/authors/1/", nil)
	Request(r, "fetching author")
	assert.Contains(t, buf.String(), "GET")
	assert.Contains(t, buf.String(), "/api/authors/1/")
}

func TestLogCounters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Increment("test_logged", 4)
	LogCounters()
	assert.Contains(t, buf.String(), `"test_logged":4`)
	assert.Contains(t, buf.String(), "counters")
}
