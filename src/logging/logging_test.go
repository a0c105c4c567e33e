package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"git.carhub.se/carhub/carhub/src/oops"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPrettyWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(NewPrettyZerologWriter(&buf))

	logger.Info().Str("session", "abc").Err(oops.New(errors.New("disk full"), "failed to persist session")).Msg("store failure")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "store failure")
	assert.Contains(t, out, "failed to persist session: disk full")
	assert.Contains(t, out, "session")
}

func TestPrettyWriterPassesThroughNonJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewPrettyZerologWriter(&buf)

	_, err := w.Write([]byte("plain text\n"))
	assert.NoError(t, err)
	assert.Equal(t, "plain text\n", buf.String())
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, GlobalLogger(), ExtractLogger(context.Background()))

	logger := zerolog.Nop()
	ctx := AttachLoggerToContext(&logger, context.Background())
	assert.Equal(t, &logger, ExtractLogger(ctx))
}
