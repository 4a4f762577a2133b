// README: Driver-position simulator; publishes samples over MQTT for local testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"rumbo/internal/types"
)

type positionSample struct {
	TripID     string      `json:"trip_id"`
	DriverID   string      `json:"driver_id"`
	Position   types.Point `json:"position"`
	ObservedAt time.Time   `json:"observed_at"`
}

// jitter nudges a position by up to the given number of meters, crudely
// approximating a moving vehicle.
func jitter(p types.Point, meters float64) types.Point {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(p.Lat*math.Pi/180)
	return types.Point{
		Lat: p.Lat + (rand.Float64()*2-1)*(meters/latMetersPerDeg),
		Lng: p.Lng + (rand.Float64()*2-1)*(meters/lngMetersPerDeg),
	}
}

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	tripID := flag.String("trip", "", "trip id to publish for")
	driverID := flag.String("driver", "", "driver id to publish as")
	lat := flag.Float64("lat", -34.9011, "starting latitude")
	lng := flag.Float64("lng", -56.1645, "starting longitude")
	interval := flag.Duration("interval", 2*time.Second, "publish interval")
	flag.Parse()

	log := logrus.New()
	if *tripID == "" || *driverID == "" {
		log.Fatal("-trip and -driver are required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID("rumbo-simulator-" + *driverID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("mqtt connect")
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topic := "rumbo/drivers/" + *driverID + "/location"
	pos := types.Point{Lat: *lat, Lng: *lng}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	log.WithFields(logrus.Fields{"topic": topic, "trip": *tripID}).Info("publishing")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos = jitter(pos, 30)
			payload, err := json.Marshal(positionSample{
				TripID:     *tripID,
				DriverID:   *driverID,
				Position:   pos,
				ObservedAt: time.Now(),
			})
			if err != nil {
				log.WithError(err).Error("marshal sample")
				continue
			}
			if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
				log.WithError(token.Error()).Warn("publish failed")
			}
		}
	}
}
