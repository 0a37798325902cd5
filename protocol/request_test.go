package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequest_Get_CaseInsensitive(t *testing.T) {
	req := &Request{Headers: []Header{{Name: "Content-Type", Value: "text/html"}}}
	v, ok := req.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "text/html", v)

	_, ok = req.Get("missing")
	assert.False(t, ok)
}
