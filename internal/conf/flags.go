// flags.go: command line overrides of configuration keys
package conf

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// Flag annotations read by LoadWithFlags
const (
	FlagKeyAnnotation   = "rfdetect_config_key"
	FlagValueAnnotation = "rfdetect_config_value"
)

// FrequencyOverrideKey replaces the device list with a single receiver on
// the given frequency (MHz)
const FrequencyOverrideKey = "frequency"

// BindFlag marks flag name as an override for key. When value is given it is
// stored instead of the flag's own value, for switches like --simulated.
func BindFlag(fs *pflag.FlagSet, name, key string, value ...string) error {
	if err := fs.SetAnnotation(name, FlagKeyAnnotation, []string{key}); err != nil {
		return fmt.Errorf("error binding flag %s: %w", name, err)
	}
	if len(value) > 0 {
		if err := fs.SetAnnotation(name, FlagValueAnnotation, value[:1]); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// LoadWithFlags loads settings like Load and applies every changed flag in fs
// that was bound with BindFlag. Flags take precedence over the file.
func LoadWithFlags(configFile string, fs *pflag.FlagSet) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v, err := Viper(configFile)
	if err != nil {
		return nil, err
	}

	var (
		frequency *float64
		flagErr   error
	)
	fs.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[FlagKeyAnnotation]
		if !f.Changed || len(keys) == 0 {
			return
		}
		value := f.Value.String()
		if fixed := f.Annotations[FlagValueAnnotation]; len(fixed) > 0 {
			value = fixed[0]
		}

		if keys[0] == FrequencyOverrideKey {
			mhz, err := strconv.ParseFloat(value, 64)
			if err != nil {
				flagErr = fmt.Errorf("invalid --%s value %q: %w", f.Name, value, err)
				return
			}
			frequency = &mhz
			return
		}
		v.Set(keys[0], value)
	})
	if flagErr != nil {
		return nil, flagErr
	}

	return decode(v, func(s *Settings) {
		if frequency == nil {
			return
		}
		device := DeviceSettings{Name: DefaultDeviceName}
		if len(s.Devices) > 0 {
			device = s.Devices[0]
		}
		device.Frequency = *frequency
		s.Devices = []DeviceSettings{device}
	})
}
