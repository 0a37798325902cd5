package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBmhSearch_FindsMatch(t *testing.T) {
	assert.Equal(t, 5, bmhSearch("GET /../etc/passwd", "../"))
}

func TestBmhSearch_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 0, bmhSearch("SELECT * FROM users", "select"))
}

func TestBmhSearch_NoMatch(t *testing.T) {
	assert.Equal(t, -1, bmhSearch("hello world", "xyz"))
}

func TestBmhSearch_EmptyNeedle(t *testing.T) {
	assert.Equal(t, 0, bmhSearch("anything", ""))
}

func TestBmhSearch_NeedleLongerThanHaystack(t *testing.T) {
	assert.Equal(t, -1, bmhSearch("hi", "hello"))
}

func TestBmhContains(t *testing.T) {
	assert.True(t, bmhContains("/wp-login.php", "wp-login.php"))
	assert.False(t, bmhContains("/index.html", "wp-login.php"))
}
