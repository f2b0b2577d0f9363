package multiio

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/mqtt"
)

const defaultMqttName = "multiio"

func (mio *MultiIO) mqttName() string {
	if len(mio.Name) > 0 {
		return mio.Name
	}
	return defaultMqttName
}

// InitMqtt connects to the broker and subscribes the driver command topics.
// The connection is kept up until ctx is done.
func (mio *MultiIO) InitMqtt(ctx context.Context) (err error) {
	if len(mio.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	mc, err := mqtt.NewMqttClient(mio.MqttBroker, mio.mqttName())
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	mio.mqttClient = mc

	mqttHandlers := []mqtt.MqttHandler{}
	for _, driver := range mio.ioDrivers {
		mqttHandlers = append(mqttHandlers, driver.SetMqtt(mc)...)
	}

	err = mc.Connect(ctx, mqttHandlers)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return
}

func (mio *MultiIO) publishStatus(status Status) error {
	return publishStatus(mio.mqttClient, mio.mqttName()+"/status", status)
}

func publishStatus(publisher mqtt.Publisher, topic string, status Status) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return errors.Wrap(err, "failed to encode status")
	}
	return publisher.Publish(topic, payload)
}
