package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestTopic(t *testing.T) {
	e := Event{Type: SOSStarted, UserID: "u1"}
	assert.Equal(t, "safetysos/u1/sos.started", Topic("safetysos", e))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: SOSCancelled}))
	p.Close()
}

// TestMQTTPublisher publishes through a real broker and reads the event back.
func TestMQTTPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:1.6",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate mosquitto: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883/tcp")
	require.NoError(t, err)
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	received := make(chan mqtt.Message, 1)
	sub := mqtt.NewClient(mqtt.NewClientOptions().AddBroker(broker).SetClientID("sos-test-sub"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { sub.Disconnect(100) })

	token = sub.Subscribe("sos/#", 1, func(_ mqtt.Client, m mqtt.Message) { received <- m })
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())

	pub, err := NewMQTTPublisher(MQTTOptions{Broker: broker, ClientID: "sos-test-pub", TopicPrefix: "sos/"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	occurred := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, pub.Publish(ctx, Event{Type: SOSStarted, UserID: "u1", OccurredAt: occurred, Data: map[string]string{"alertId": "a1"}}))

	select {
	case m := <-received:
		assert.Equal(t, "sos/u1/sos.started", m.Topic())
		var got Event
		require.NoError(t, json.Unmarshal(m.Payload(), &got))
		assert.Equal(t, SOSStarted, got.Type)
		assert.Equal(t, "u1", got.UserID)
		assert.True(t, occurred.Equal(got.OccurredAt))
	case <-time.After(10 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNewMQTTPublisher_UnreachableBroker(t *testing.T) {
	_, err := NewMQTTPublisher(MQTTOptions{Broker: "tcp://127.0.0.1:1", ClientID: "x"}, zap.NewNop())
	assert.Error(t, err)
}
