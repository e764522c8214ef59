package main

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/panduza/pza-runtime/pkg/attribute"
	"github.com/panduza/pza-runtime/pkg/container"
	"github.com/panduza/pza-runtime/pkg/instance"
	"github.com/panduza/pza-runtime/pkg/pzaerr"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
)

// thermoSettings configures one simulated thermometer instance.
type thermoSettings struct {
	StartCelsius float64 `json:"start_celsius"`
}

// thermoProducer builds Actions for the "acme.thermo" dref: a simulated
// thermometer exposing a "temperature" number attribute driven by a
// background oscillator task, and a "heater_enabled" boolean attribute
// commands can flip.
type thermoProducer struct{}

func (thermoProducer) Description() string {
	return "simulated thermometer with a software-controlled heater"
}

func (thermoProducer) Produce(raw json.RawMessage) (instance.Actions, error) {
	settings := thermoSettings{StartCelsius: 20.0}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, pzaerr.BadSettings("acme.thermo: invalid settings: %v", err)
		}
	}
	return &thermoActions{start: settings.StartCelsius}, nil
}

type thermoActions struct {
	start float64

	temperature attribute.Number
	heater      attribute.Boolean
}

func (a *thermoActions) Mount(ctx context.Context, c container.Container) error {
	temp, err := c.CreateAttribute().WithTopic("temperature").WithRO().
		WithInfo("simulated ambient temperature in Celsius").
		FinishAsNumber(a.start)
	if err != nil {
		return err
	}
	a.temperature = temp

	heater, err := c.CreateAttribute().WithTopic("heater_enabled").WithRW().
		WithInfo("turn the simulated heater on or off").
		FinishAsBoolean(false)
	if err != nil {
		return err
	}
	a.heater = heater

	c.MonitorTask() <- taskmonitor.NamedTask{
		Name: "thermo-oscillator",
		Run:  a.runOscillator,
	}
	return nil
}

// runOscillator nudges the simulated temperature toward a setpoint that
// depends on whether the heater is enabled, publishing the new value on
// every tick.
func (a *thermoActions) runOscillator(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	current := a.start
	tick := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick++
			heaterOn, _ := a.heater.CurrentValue()
			setpoint := a.start
			if heaterOn {
				setpoint = a.start + 15
			}
			current += (setpoint - current) * 0.2
			current += math.Sin(float64(tick)/3.0) * 0.1
			if err := a.temperature.Set(current); err != nil {
				return err
			}
		}
	}
}

func (a *thermoActions) WaitRebootEvent(ctx context.Context, c container.Container) error {
	select {
	case <-c.ResetSignal():
		return nil
	case <-time.After(5 * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
