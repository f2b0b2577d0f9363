package mqtt

import (
	"testing"

	"github.com/eclipse/paho.golang/paho"
)

type recordingHandler struct {
	topic    string
	received []string
}

func (rh *recordingHandler) MqttHandle(pub *paho.Publish) {
	rh.received = append(rh.received, pub.Topic)
}

func (rh *recordingHandler) MqttSubscribeTopic() string {
	return rh.topic
}

func TestTopicMatch(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"multiio/0/set/#", "multiio/0/set/relay/1", true},
		{"multiio/0/set/#", "multiio/0/set", true},
		{"multiio/0/set/#", "multiio/1/set/relay/1", false},
		{"multiio/+/set/relay/+", "multiio/3/set/relay/2", true},
		{"multiio/+/set/relay/+", "multiio/3/set/led/2", false},
		{"multiio/0/state", "multiio/0/state", true},
		{"multiio/0/state", "multiio/0/state/relay", false},
		{"multiio/0/state/relay", "multiio/0/state", false},
	}

	for _, c := range cases {
		t.Run(c.filter+" "+c.topic, func(t *testing.T) {
			if got := TopicMatch(c.filter, c.topic); got != c.want {
				t.Errorf("got %v want %v", got, c.want)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	mc, err := NewMqttClient("mqtt://localhost:1883", "test")
	if err != nil {
		t.Fatal(err)
	}

	relays := &recordingHandler{topic: "card/set/relay/+"}
	all := &recordingHandler{topic: "card/set/#"}
	mc.handlers = []MqttHandler{relays, all}

	if !mc.Dispatch(&paho.Publish{Topic: "card/set/relay/1"}) {
		t.Error("expected message to be handled")
	}
	mc.Dispatch(&paho.Publish{Topic: "card/set/led/4"})
	if mc.Dispatch(&paho.Publish{Topic: "other/topic"}) {
		t.Error("expected message not to be handled")
	}

	if len(relays.received) != 1 || len(all.received) != 2 {
		t.Errorf("got %v and %v", relays.received, all.received)
	}
}

func TestPublishNotConnected(t *testing.T) {
	mc, _ := NewMqttClient("mqtt://localhost:1883", "test")
	if err := mc.Publish("a/b", []byte("x")); err == nil {
		t.Error("expected error before Connect")
	}
}
