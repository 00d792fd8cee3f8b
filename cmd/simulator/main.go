package main

import (
	"encoding/json"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/utilityops/ums-backend/internal/config"
)

type reading struct {
	MeterID string  `json:"meter_id"`
	Reading float64 `json:"reading"`
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID("ums-simulator-" + uuid.NewString())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	// Readings only ever increase; anything else would be rejected as a
	// rollback by the ingestion pipeline.
	meters := map[string]float64{
		"MTR-1001": 100,
		"MTR-1002": 250,
		"MTR-1003": 40,
	}
	for i := 0; i < 100; i++ {
		for id := range meters {
			meters[id] += rand.Float64() * 20
			payload, _ := json.Marshal(reading{MeterID: id, Reading: meters[id]})
			token := client.Publish("ums/readings", 0, false, payload)
			token.Wait()
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Msg("simulation done")
}
