package power

import (
	"strconv"
	"strings"
	"time"
)

// wmiScript prints the battery classes of root\wmi and Win32_Battery as
// Key=Value lines.
const wmiScript = `
	$s = Get-CimInstance -Namespace root\wmi -ClassName BatteryStatus -ErrorAction SilentlyContinue | Select-Object -First 1
	if ($s) {
		Write-Output "InstanceName=$($s.InstanceName)"
		Write-Output "RemainingCapacity=$($s.RemainingCapacity)"
		Write-Output "DischargeRate=$($s.DischargeRate)"
		Write-Output "ChargeRate=$($s.ChargeRate)"
		Write-Output "Voltage=$($s.Voltage)"
		Write-Output "Charging=$($s.Charging)"
		Write-Output "Discharging=$($s.Discharging)"
		Write-Output "PowerOnline=$($s.PowerOnline)"
	}
	$f = Get-CimInstance -Namespace root\wmi -ClassName BatteryFullChargedCapacity -ErrorAction SilentlyContinue | Select-Object -First 1
	if ($f) { Write-Output "FullChargedCapacity=$($f.FullChargedCapacity)" }
	$d = Get-CimInstance -Namespace root\wmi -ClassName BatteryStaticData -ErrorAction SilentlyContinue | Select-Object -First 1
	if ($d) {
		Write-Output "DesignedCapacity=$($d.DesignedCapacity)"
		Write-Output "ManufactureName=$($d.ManufactureName)"
		Write-Output "DeviceName=$($d.DeviceName)"
	}
	$c = Get-CimInstance -Namespace root\wmi -ClassName BatteryCycleCount -ErrorAction SilentlyContinue | Select-Object -First 1
	if ($c) { Write-Output "CycleCount=$($c.CycleCount)" }
	$b = Get-CimInstance Win32_Battery -ErrorAction SilentlyContinue | Select-Object -First 1
	if ($b) { Write-Output "EstimatedChargeRemaining=$($b.EstimatedChargeRemaining)" }
`

// wmiProps parses Key=Value lines.
func wmiProps(output string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key != "" && value != "" {
			props[key] = value
		}
	}
	return props
}

// parseWMI turns the wmiScript output into a batch. Capacities are mWh, rates
// mW and voltage mV.
func parseWMI(output string, now time.Time) Batch {
	props := wmiProps(output)
	src := "wmi"
	batch := Batch{Timestamp: now, Source: props["InstanceName"]}
	if batch.Source == "" {
		batch.Source = "battery"
	}

	num := func(key string) (float64, bool) {
		v, err := strconv.ParseFloat(props[key], 64)
		return v, err == nil
	}
	isTrue := func(key string) bool {
		return strings.EqualFold(props[key], "true")
	}

	switch {
	case isTrue("Charging"):
		batch.Status = StatusCharging
	case isTrue("Discharging"):
		batch.Status = StatusDischarging
	case isTrue("PowerOnline"):
		batch.Status = StatusNotCharging
	}

	if mwh, ok := num("RemainingCapacity"); ok {
		batch.Add(NewSample(EnergyNow, FromMilli(mwh), now, src+"/RemainingCapacity"))
	}
	if mwh, ok := num("FullChargedCapacity"); ok && mwh > 0 {
		batch.Add(NewSample(EnergyFull, FromMilli(mwh), now, src+"/FullChargedCapacity"))
	}
	if mwh, ok := num("DesignedCapacity"); ok && mwh > 0 {
		batch.Add(NewSample(EnergyFullDesign, FromMilli(mwh), now, src+"/DesignedCapacity"))
	}

	// The idle rate is reported as 0 while the other one carries the flow.
	if mw, ok := num("DischargeRate"); ok && mw > 0 {
		batch.Add(NewSample(PowerNow, -FromMilli(mw), now, src+"/DischargeRate"))
	} else if mw, ok := num("ChargeRate"); ok && mw > 0 {
		batch.Add(NewSample(PowerNow, FromMilli(mw), now, src+"/ChargeRate"))
	}

	if mv, ok := num("Voltage"); ok && mv > 0 {
		batch.Add(NewSample(VoltageNow, FromMilli(mv), now, src+"/Voltage"))
	}
	if pct, ok := num("EstimatedChargeRemaining"); ok {
		batch.Add(NewSample(CapacityPercent, pct, now, src+"/EstimatedChargeRemaining"))
	}
	if cycles, ok := num("CycleCount"); ok && cycles > 0 {
		batch.Add(NewSample(CycleCount, cycles, now, src+"/CycleCount"))
	}

	return batch
}
