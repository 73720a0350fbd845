//go:build linux

package power

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// TempSensor is a discovered temperature input.
type TempSensor struct {
	// Type is the hwmon driver name ("coretemp", "k10temp", ...), "battery"
	// or "thermal_zone".
	Type  string
	Path  string
	Label string
	Name  string
}

type sensorValue struct {
	sensor TempSensor
	value  float64
}

// cpuSensorPriority orders drivers: Intel first, then AMD.
func cpuSensorPriority(driver string) int {
	switch driver {
	case "coretemp":
		return 1
	case "k10temp":
		return 2
	case "zenpower":
		return 3
	case "amdgpu":
		return 4
	default:
		return 9
	}
}

// isCPUTempSensor decides whether a hwmon input is a main package/die sensor.
func isCPUTempSensor(driver, label string) bool {
	l := strings.ToLower(label)
	switch driver {
	case "coretemp":
		return label == "" || strings.Contains(l, "package")
	case "k10temp":
		return label == "" || strings.Contains(l, "tctl") || strings.Contains(l, "tdie")
	case "zenpower":
		return label == "" || strings.Contains(l, "tctl") || strings.Contains(l, "tdie") || strings.Contains(l, "die")
	case "amdgpu":
		return strings.Contains(l, "edge")
	default:
		return false
	}
}

// discoverCPUSensors scans hwmon*/temp*_input for CPU package sensors.
func discoverCPUSensors(root string, log logrus.FieldLogger) []TempSensor {
	entries, err := os.ReadDir(root)
	if err != nil {
		log.Debugf("No hwmon directory at %s: %v", root, err)
		return nil
	}

	var sensors []TempSensor
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "hwmon") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		driver := readTrimmed(filepath.Join(dir, "name"))
		if driver == "" {
			continue
		}
		if driver == "acpitz" || strings.Contains(driver, "virtual") {
			log.Debugf("Skipping virtual sensor %s", driver)
			continue
		}

		inputs, _ := filepath.Glob(filepath.Join(dir, "temp*_input"))
		sort.Strings(inputs)
		for _, input := range inputs {
			num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(input), "temp"), "_input")
			label := readTrimmed(filepath.Join(dir, fmt.Sprintf("temp%s_label", num)))
			if !isCPUTempSensor(driver, label) {
				continue
			}
			if _, ok := readFloat(input); !ok {
				log.Debugf("Cannot read %s", input)
				continue
			}
			name := label
			if name == "" {
				name = "temp" + num
			}
			sensors = append(sensors, TempSensor{
				Type:  driver,
				Path:  input,
				Label: label,
				Name:  driver + " " + name,
			})
		}
	}

	sort.SliceStable(sensors, func(i, j int) bool {
		return cpuSensorPriority(sensors[i].Type) < cpuSensorPriority(sensors[j].Type)
	})
	for _, s := range sensors {
		log.Debugf("CPU sensor: %s (%s)", s.Name, s.Path)
	}
	return sensors
}

// discoverBatterySensors finds power_supply/BAT*/temp files and thermal zones
// of type "battery".
func discoverBatterySensors(supplyRoot, thermalRoot string, log logrus.FieldLogger) []TempSensor {
	var sensors []TempSensor

	for _, name := range FindBatteries(supplyRoot) {
		path := filepath.Join(supplyRoot, name, "temp")
		if _, ok := readFloat(path); !ok {
			continue
		}
		sensors = append(sensors, TempSensor{
			Type:  "battery",
			Path:  path,
			Label: name,
			Name:  "Battery " + name,
		})
	}

	entries, err := os.ReadDir(thermalRoot)
	if err == nil {
		for _, entry := range entries {
			if !strings.HasPrefix(entry.Name(), "thermal_zone") {
				continue
			}
			dir := filepath.Join(thermalRoot, entry.Name())
			if readTrimmed(filepath.Join(dir, "type")) != "battery" {
				continue
			}
			path := filepath.Join(dir, "temp")
			if _, ok := readFloat(path); !ok {
				continue
			}
			sensors = append(sensors, TempSensor{
				Type:  "thermal_zone",
				Path:  path,
				Label: "battery",
				Name:  "Battery Thermal " + entry.Name(),
			})
		}
	}

	if len(sensors) == 0 {
		log.Debug("No battery temperature sensors found")
	}
	return sensors
}

// readSensor returns the first sensor that can be read, converted to Celsius.
func readSensor(sensors []TempSensor, convert func(float64) float64) (sensorValue, bool) {
	for _, s := range sensors {
		raw, ok := readFloat(s.Path)
		if !ok {
			continue
		}
		return sensorValue{sensor: s, value: convert(raw)}, true
	}
	return sensorValue{}, false
}
