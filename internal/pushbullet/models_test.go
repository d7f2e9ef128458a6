package pushbullet_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
)

func TestPush_DecodeWireFormat(t *testing.T) {
	raw := `{
		"active": true,
		"body": "Space Elevator, Mars Hyperloop, Space Model S (Model Space?)",
		"created": 1412047948.579029,
		"direction": "self",
		"dismissed": false,
		"iden": "ujpah72o0sjAoRtnM0jc",
		"modified": 1412047948.579031,
		"receiver_email": "elon@teslamotors.com",
		"receiver_email_normalized": "elon@teslamotors.com",
		"receiver_iden": "ujpah72o0",
		"sender_email": "elon@teslamotors.com",
		"sender_email_normalized": "elon@teslamotors.com",
		"sender_iden": "ujpah72o0",
		"sender_name": "Elon Musk",
		"title": "Space Travel Ideas",
		"type": "note",
		"unknown_field": {"nested": true}
	}`

	var push pushbullet.Push
	require.NoError(t, json.Unmarshal([]byte(raw), &push))

	assert.Equal(t, "ujpah72o0sjAoRtnM0jc", push.Iden)
	assert.True(t, push.Active)
	assert.True(t, push.IsNote())
	assert.Equal(t, "Space Travel Ideas", push.Title)
	assert.Equal(t, pushbullet.DirectionSelf, push.Direction)
	assert.Equal(t, "ujpah72o0", push.SenderIden)
	assert.Equal(t, "elon@teslamotors.com", push.ReceiverEmail)
	assert.Empty(t, push.TargetDeviceIden)

	created := push.CreatedAt()
	assert.Equal(t, int64(1412047948), created.Unix())
	assert.InDelta(t, 579029000, created.Nanosecond(), 1000)
}

func TestEpochTimestamps_ZeroIsZeroTime(t *testing.T) {
	var d pushbullet.Device
	assert.True(t, d.CreatedAt().IsZero())
	assert.True(t, d.ModifiedAt().IsZero())
}

func TestDevice_MissingFieldsDefaultToZero(t *testing.T) {
	var device pushbullet.Device
	require.NoError(t, json.Unmarshal([]byte(`{"iden":"ujpah72o0sjAoRtnM0jc","nickname":"Phone"}`), &device))

	assert.Equal(t, "Phone", device.Nickname)
	assert.False(t, device.Active)
	assert.Zero(t, device.Created)
	assert.Equal(t, time.Time{}, device.CreatedAt())
}

func TestNewNote_WireFormat(t *testing.T) {
	payload, err := json.Marshal(pushbullet.NewNote("Title", "Body", "ujpah72o0sjAoRtnM0jc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"note","title":"Title","body":"Body","device_iden":"ujpah72o0sjAoRtnM0jc"}`, string(payload))

	payload, err = json.Marshal(pushbullet.NewNote("Title", "Body", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"note","title":"Title","body":"Body"}`, string(payload))

	payload, err = json.Marshal(pushbullet.NewNote("", "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"note","title":"","body":""}`, string(payload))
}

func TestRequestPayloads_WireFormat(t *testing.T) {
	payload, err := json.Marshal(pushbullet.ChatRequest{Email: "carmack@example.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"carmack@example.com"}`, string(payload))

	payload, err = json.Marshal(pushbullet.SubscriptionRequest{ChannelTag: "jblow"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel_tag":"jblow"}`, string(payload))

	payload, err = json.Marshal(pushbullet.NewDevice{Nickname: "Laptop", Type: "windows", Model: "XPS", Manufacturer: "Dell"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nickname":"Laptop","type":"windows","model":"XPS","manufacturer":"Dell"}`, string(payload))
}

func TestChat_DecodeRecipient(t *testing.T) {
	raw := `{"iden":"ujlMns72k","active":true,"created":1412047948.579029,"modified":1412047948.579031,
		"with":{"type":"user","iden":"ujlMns72k","email":"carmack@idsoftware.com","email_normalized":"carmack@idsoftware.com","name":"John Carmack"}}`

	var chat pushbullet.Chat
	require.NoError(t, json.Unmarshal([]byte(raw), &chat))
	assert.Equal(t, "user", chat.With.Type)
	assert.Equal(t, "John Carmack", chat.With.Name)
	assert.False(t, chat.Muted)
}
