package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientConn_SendNeverBlocks(t *testing.T) {
	c := newClientConn("a", nil, 1)
	assert.True(t, c.Send([]byte("first")))
	assert.False(t, c.Send([]byte("overflow")))

	<-c.send
	close(c.closed)
	assert.False(t, c.Send([]byte("after close")))
}

func TestClientConn_SendJSONQueuesEncodedFrame(t *testing.T) {
	c := newClientConn("a", nil, 1)
	assert.True(t, c.sendJSON(errorFrame("boom")))
	assert.JSONEq(t, `{"event":"error","body":{"error":"boom"}}`, string(<-c.send))
}
