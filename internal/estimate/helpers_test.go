package estimate

import (
	"time"

	"github.com/rdegges/batfi/internal/power"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func mkBatch(ts time.Time, status power.Status, values map[power.MetricKind]float64) power.Batch {
	b := power.Batch{Timestamp: ts, Status: status, Source: "BAT0"}
	for _, kind := range power.MetricKinds {
		if v, ok := values[kind]; ok {
			b.Add(power.NewSample(kind, v, ts, "test"))
		}
	}
	return b
}

func discharging(ts time.Time, watts, energyWh float64) power.Batch {
	return mkBatch(ts, power.StatusDischarging, map[power.MetricKind]float64{
		power.PowerNow:        watts,
		power.EnergyNow:       energyWh,
		power.EnergyFull:      55.3,
		power.CapacityPercent: 100 * energyWh / 55.3,
		power.VoltageNow:      11.8,
	})
}

func charging(ts time.Time, watts, energyWh float64) power.Batch {
	return mkBatch(ts, power.StatusCharging, map[power.MetricKind]float64{
		power.PowerNow:        watts,
		power.EnergyNow:       energyWh,
		power.EnergyFull:      55.3,
		power.CapacityPercent: 100 * energyWh / 55.3,
		power.VoltageNow:      12.4,
	})
}
