package nats

import (
	"testing"

	"auto-replier-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand("commands.generateDraft", []byte(`{"emailBody":"Hi","creativity":"precise"}`))
	require.NoError(t, err)
	assert.Equal(t, events.CommandGenerateDraft, cmd.Type)
	assert.Equal(t, "Hi", cmd.EmailBody)

	cmd, err = DecodeCommand("commands.anything", []byte(`{"type":"checkAvailability"}`))
	require.NoError(t, err)
	assert.Equal(t, events.CommandCheckAvailability, cmd.Type)

	_, err = DecodeCommand("commands.x", []byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeCommand("other.subject", []byte(`{}`))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.final", Subject(events.TypeFinal))
}
