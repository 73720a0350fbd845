package power

// Raw sysfs magnitudes are micro-units; ioreg and WMI report milli-units.
const (
	micro = 1_000_000.0
	milli = 1_000.0
)

// FromMicro converts µWh, µAh, µW, µV or µA to the base unit.
func FromMicro(raw float64) float64 {
	return raw / micro
}

// FromMilli converts mWh, mAh, mW, mV or mA to the base unit.
func FromMilli(raw float64) float64 {
	return raw / milli
}

// EnergyFromCharge converts a charge in Ah at the given voltage to Wh.
func EnergyFromCharge(chargeAh, voltageV float64) float64 {
	return chargeAh * voltageV
}

// NormalizeTemperature guesses the scale of a raw temperature. Values above
// 1000 are millidegrees, above 200 decidegrees, anything else is already in
// degrees Celsius.
func NormalizeTemperature(raw float64) float64 {
	switch {
	case raw > 1000:
		return raw / 1000
	case raw > 200:
		return raw / 10
	default:
		return raw
	}
}

// MillidegreesToCelsius converts hwmon temp*_input values.
func MillidegreesToCelsius(raw float64) float64 {
	return raw / 1000
}

// CelsiusToFahrenheit is used for display only.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
