// README: MQTT bridge ingesting driver position samples from device telemetry.
package stream

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

// LocationSink is the trip-service entry point for position samples.
type LocationSink interface {
	UpdateDriverLocation(ctx context.Context, cmd trip.LocationCommand) (bool, error)
}

// positionSample is the wire format driver devices publish on
// rumbo/drivers/<driver_id>/location.
type positionSample struct {
	TripID     types.ID    `json:"trip_id"`
	DriverID   types.ID    `json:"driver_id"`
	Position   types.Point `json:"position"`
	ObservedAt time.Time   `json:"observed_at"`
}

// MQTTIngest subscribes to the driver-location topic and forwards samples to
// the trip service. Stale or out-of-state samples are handled there; ingest
// only parses and logs.
type MQTTIngest struct {
	client mqtt.Client
	topic  string
	sink   LocationSink
	log    *logrus.Logger
}

func NewMQTTIngest(brokerURL, topic string, sink LocationSink, log *logrus.Logger) *MQTTIngest {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("rumbo-location-ingest").
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	return &MQTTIngest{client: mqtt.NewClient(opts), topic: topic, sink: sink, log: log}
}

// Start connects and subscribes; it blocks until ctx is done, then
// disconnects.
func (in *MQTTIngest) Start(ctx context.Context) error {
	if token := in.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := in.client.Subscribe(in.topic, 1, in.handle); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	in.log.WithField("topic", in.topic).Info("stream: mqtt ingest subscribed")
	<-ctx.Done()
	in.client.Disconnect(250)
	return nil
}

func (in *MQTTIngest) handle(_ mqtt.Client, msg mqtt.Message) {
	var sample positionSample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		in.log.WithError(err).WithField("topic", msg.Topic()).Warn("stream: bad position payload")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := in.sink.UpdateDriverLocation(ctx, trip.LocationCommand{
		TripID:     sample.TripID,
		DriverID:   sample.DriverID,
		Position:   sample.Position,
		ObservedAt: sample.ObservedAt,
	})
	if err != nil {
		in.log.WithError(err).WithField("trip_id", sample.TripID).Debug("stream: position rejected")
	}
}
