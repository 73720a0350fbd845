package power

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ioregPropRe matches one top-level `"Key" = value` line of
// `ioreg -rn AppleSmartBattery`. Keys inside nested dictionaries share a line
// with their parent and are not matched.
var ioregPropRe = regexp.MustCompile(`(?m)^[\s|]*"(\w+)" = ([^\s{(,}]+)`)

// ioregProps collects the top-level scalar properties of an ioreg dump.
func ioregProps(output string) map[string]string {
	props := make(map[string]string)
	for _, m := range ioregPropRe.FindAllStringSubmatch(output, -1) {
		if _, seen := props[m[1]]; !seen {
			props[m[1]] = strings.Trim(m[2], `"`)
		}
	}
	return props
}

// parseIoregSigned reads an unsigned ioreg integer that may hold a negative
// value in two's complement.
func parseIoregSigned(value string) (int64, bool) {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		i, err := strconv.ParseInt(value, 10, 64)
		return i, err == nil
	}
	if v > math.MaxInt32 && v <= math.MaxUint32 {
		return int64(int32(v)), true
	}
	return int64(v), true
}

func ioregBool(props map[string]string, key string) bool {
	return props[key] == "Yes"
}

// parseIoreg turns an AppleSmartBattery dump into a batch.
func parseIoreg(output string, now time.Time) Batch {
	props := ioregProps(output)
	src := "AppleSmartBattery"
	batch := Batch{Timestamp: now, Source: "InternalBattery-0"}

	num := func(key string) (float64, bool) {
		v, ok := parseIoregSigned(props[key])
		return float64(v), ok
	}

	switch {
	case ioregBool(props, "FullyCharged"):
		batch.Status = StatusFull
	case ioregBool(props, "IsCharging"):
		batch.Status = StatusCharging
	case props["ExternalConnected"] == "No":
		batch.Status = StatusDischarging
	case ioregBool(props, "ExternalConnected"):
		batch.Status = StatusNotCharging
	}

	volts, hasVolts := num("Voltage")
	if hasVolts {
		volts = FromMilli(volts)
		batch.Add(NewSample(VoltageNow, volts, now, src+"/Voltage"))
	}

	if ma, ok := num("InstantAmperage"); ok {
		batch.Add(NewSample(CurrentNow, FromMilli(ma), now, src+"/InstantAmperage"))
	} else if ma, ok := num("Amperage"); ok {
		batch.Add(NewSample(CurrentNow, FromMilli(ma), now, src+"/Amperage"))
	}

	// Apple Silicon reports CurrentCapacity as a percentage and the raw mAh
	// values under AppleRaw*; Intel machines report mAh in CurrentCapacity.
	rawNow, hasRawNow := num("AppleRawCurrentCapacity")
	rawMax, hasRawMax := num("AppleRawMaxCapacity")
	if !hasRawNow {
		rawNow, hasRawNow = num("CurrentCapacity")
	}
	if !hasRawMax {
		rawMax, hasRawMax = num("MaxCapacity")
	}

	if hasRawNow && hasRawMax && rawMax > 100 {
		batch.Add(NewSample(ChargeNow, FromMilli(rawNow), now, src+"/AppleRawCurrentCapacity"))
		batch.Add(NewSample(ChargeFull, FromMilli(rawMax), now, src+"/AppleRawMaxCapacity"))
		if hasVolts {
			batch.Add(NewSample(EnergyNow, EnergyFromCharge(FromMilli(rawNow), volts), now, src+"/AppleRawCurrentCapacity"))
			batch.Add(NewSample(EnergyFull, EnergyFromCharge(FromMilli(rawMax), volts), now, src+"/AppleRawMaxCapacity"))
		}
		batch.Add(NewSample(CapacityPercent, 100*rawNow/rawMax, now, src+"/CurrentCapacity"))
	} else if pct, ok := num("CurrentCapacity"); ok && pct <= 100 {
		batch.Add(NewSample(CapacityPercent, pct, now, src+"/CurrentCapacity"))
	}

	if design, ok := num("DesignCapacity"); ok && design > 0 {
		batch.Add(NewSample(ChargeFullDesign, FromMilli(design), now, src+"/DesignCapacity"))
		if hasVolts {
			batch.Add(NewSample(EnergyFullDesign, EnergyFromCharge(FromMilli(design), volts), now, src+"/DesignCapacity"))
		}
	}

	if cycles, ok := num("CycleCount"); ok {
		batch.Add(NewSample(CycleCount, cycles, now, src+"/CycleCount"))
	}

	// Temperature is in hundredths of a degree.
	if centi, ok := num("Temperature"); ok {
		batch.Add(NewSample(Temperature, centi/100, now, src+"/Temperature"))
	}

	return batch
}
