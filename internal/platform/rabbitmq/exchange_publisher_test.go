package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/model"
)

func TestExchangeCodec(t *testing.T) {
	in := model.Exchange{
		SessionID: "s1",
		Question:  "what is in the report?",
		Answer:    "revenue figures",
		Model:     "Hugging Face",
		CreatedAt: time.UnixMilli(1700000000123),
	}
	in.SetSources([]string{"Q3 revenue grew"})

	body, err := EncodeExchange(in)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"created_at":1700000000123`)

	out, err := DecodeExchange(body)
	require.NoError(t, err)
	assert.Equal(t, in.SessionID, out.SessionID)
	assert.Equal(t, in.Answer, out.Answer)
	assert.Equal(t, []string{"Q3 revenue grew"}, out.SourceList())
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

func TestDecodeExchange_Invalid(t *testing.T) {
	_, err := DecodeExchange([]byte(`{"question":"q"}`))
	assert.ErrorContains(t, err, "session_id")

	_, err = DecodeExchange([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeExchange_NoTimestamp(t *testing.T) {
	out, err := DecodeExchange([]byte(`{"session_id":"s1"}`))
	require.NoError(t, err)
	assert.True(t, out.CreatedAt.IsZero())
}
