package gfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgjail/imgjail/pkg/ihosterrors"
)

func TestHeadReturnsBufferedBytesForSmallSource(t *testing.T) {
	w := New(strings.NewReader("\x89PNG\r\n\x1a\nrest"), "photo.png")
	head, err := w.Head()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nrest"), head)
}

func TestWriteToStreamsHeadAndRemainder(t *testing.T) {
	payload := strings.Repeat("a", HeadSize) + "tail-bytes"
	w := New(strings.NewReader(payload), "")

	var out bytes.Buffer
	require.NoError(t, w.WriteTo(&out))
	assert.Equal(t, payload, out.String())
}

func TestWriteToTwiceFailsAlreadyTransferred(t *testing.T) {
	w := New(strings.NewReader("data"), "")
	var out bytes.Buffer
	require.NoError(t, w.WriteTo(&out))

	err := w.WriteTo(&out)
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeAlreadyTransferred))
}
