// Package metrics exports battery estimates to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/power"
)

const namespace = "batfi"

// Metrics holds every collector batfi exports. Labelled series for values
// the last estimate did not know are removed rather than zeroed.
type Metrics struct {
	// Power in watts, labelled raw, smoothed, ema and rolling.
	Power *prometheus.GaugeVec

	// TimeRemaining is seconds to empty or to full, labelled by direction.
	TimeRemaining *prometheus.GaugeVec

	// Battery readings that may be unknown are unlabelled vectors so the
	// series can be removed.
	CapacityPercent *prometheus.GaugeVec
	HealthPercent   *prometheus.GaugeVec
	Voltage         *prometheus.GaugeVec
	Current         *prometheus.GaugeVec
	Energy          *prometheus.GaugeVec

	// Temperature in Celsius, labelled battery or cpu.
	Temperature *prometheus.GaugeVec

	Samples    prometheus.Gauge
	Confidence prometheus.Gauge

	TicksTotal    prometheus.Counter
	RejectedTotal *prometheus.CounterVec
	FlipsTotal    prometheus.Counter
	MethodTotal   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Power: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "power_watts",
				Help:      "Battery power draw in watts",
			},
			[]string{"kind"},
		),
		TimeRemaining: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "time_remaining_seconds",
				Help:      "Estimated time to empty or to full",
			},
			[]string{"direction"},
		),
		CapacityPercent: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "capacity_percent",
				Help:      "State of charge in percent",
			},
			nil,
		),
		HealthPercent: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "health_percent",
				Help:      "Full capacity relative to design capacity",
			},
			nil,
		),
		Voltage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "voltage_volts",
				Help:      "Battery voltage",
			},
			nil,
		),
		Current: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_amperes",
				Help:      "Battery current, positive while charging",
			},
			nil,
		),
		Energy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "energy_watt_hours",
				Help:      "Stored energy, labelled now or full",
			},
			[]string{"kind"},
		),
		Temperature: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "temperature_celsius",
				Help:      "Smoothed sensor temperature",
			},
			[]string{"sensor"},
		),
		Samples: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "samples",
			Help:      "Power samples accepted since the last reset",
		}),
		Confidence: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "confidence_level",
			Help:      "Estimate confidence from 0 (low) to 3 (very high)",
		}),
		TicksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Batches applied to the estimator",
		}),
		RejectedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_batches_total",
				Help:      "Batches that could not be applied",
			},
			[]string{"reason"},
		),
		FlipsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "direction_flips_total",
			Help:      "Charge direction changes that reset smoothing",
		}),
		MethodTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "power_resolutions_total",
				Help:      "Ticks by power resolution method",
			},
			[]string{"method"},
		),
	}
}

// Observe records one accepted estimate.
func (m *Metrics) Observe(est estimate.Estimate) {
	m.TicksTotal.Inc()
	if est.Flipped {
		m.FlipsTotal.Inc()
	}

	if est.HasPower {
		m.Power.WithLabelValues("raw").Set(est.Power.Watts)
		m.MethodTotal.WithLabelValues(est.Power.Method.String()).Inc()
	} else {
		m.Power.DeleteLabelValues("raw")
	}
	if est.HasSmoothed {
		m.Power.WithLabelValues("smoothed").Set(est.Smoothed.Value)
		m.Power.WithLabelValues("ema").Set(est.Smoothed.EMA)
		m.Power.WithLabelValues("rolling").Set(est.Smoothed.Rolling)
	} else {
		for _, kind := range []string{"smoothed", "ema", "rolling"} {
			m.Power.DeleteLabelValues(kind)
		}
	}

	m.TimeRemaining.Reset()
	if est.Time.Valid {
		m.TimeRemaining.WithLabelValues(est.Time.Direction.String()).Set(est.Time.Duration().Seconds())
	}

	setVec(m.CapacityPercent, est.CapacityPercent)
	setVec(m.HealthPercent, est.HealthPercent)
	setVec(m.Voltage, est.VoltageV)
	setVec(m.Current, est.CurrentA)

	setVec(m.Energy, est.EnergyNowWh, "now")
	setVec(m.Energy, est.EnergyFullWh, "full")

	if est.BatteryTemp.Valid {
		m.Temperature.WithLabelValues("battery").Set(est.BatteryTemp.Smoothed)
	} else {
		m.Temperature.DeleteLabelValues("battery")
	}
	if est.CPUTemp.Valid {
		m.Temperature.WithLabelValues("cpu").Set(est.CPUTemp.Smoothed)
	} else {
		m.Temperature.DeleteLabelValues("cpu")
	}

	m.Samples.Set(float64(est.Samples))
	m.Confidence.Set(float64(est.Confidence))
}

// Reject records a batch the estimator refused.
func (m *Metrics) Reject(reason string) {
	m.RejectedTotal.WithLabelValues(reason).Inc()
}

// setVec sets the series for labels when v is known and removes it otherwise.
func setVec(g *prometheus.GaugeVec, v power.Value, labels ...string) {
	if f, ok := v.Get(); ok {
		g.WithLabelValues(labels...).Set(f)
		return
	}
	g.DeleteLabelValues(labels...)
}
