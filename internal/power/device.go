package power

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// ErrNoBattery is returned when no battery could be found.
var ErrNoBattery = errors.New("no battery found")

// Options configures a platform monitor. Battery selects a device by name;
// the roots override sysfs locations and are only honoured on Linux.
type Options struct {
	Battery         string
	PowerSupplyRoot string
	HwmonRoot       string
	ThermalRoot     string
	Logger          logrus.FieldLogger
}

// DeviceInfo holds identity strings of the battery being monitored.
type DeviceInfo struct {
	Name         string
	Manufacturer string
	Model        string
	Technology   string
}

// InfoProvider is implemented by monitors that know the battery identity.
type InfoProvider interface {
	Info() DeviceInfo
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}
