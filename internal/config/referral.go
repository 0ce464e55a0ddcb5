package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/referral"
	"github.com/spf13/viper"
)

// ReferralDefaults are the settings used when no settings row has been saved yet.
// Rates are read as plain YAML numbers and converted to decimals by the
// settings service.
type ReferralDefaults struct {
	RateL1          float64       `mapstructure:"rateL1"`
	RateL2          float64       `mapstructure:"rateL2"`
	RateL3          float64       `mapstructure:"rateL3"`
	GSTRate         float64       `mapstructure:"gstRate"`
	DefaultDiscount int64         `mapstructure:"defaultDiscount"`
	CompletionLock  time.Duration `mapstructure:"completionLock"`
}

func DefaultReferralDefaults() ReferralDefaults {
	return ReferralDefaults{
		RateL1:          20,
		RateL2:          10,
		RateL3:          5,
		GSTRate:         18,
		DefaultDiscount: 10,
		CompletionLock:  30 * time.Second,
	}
}

type ReferralDefaultsHolder struct {
	current atomic.Value // holds ReferralDefaults
}

// NewStaticReferralDefaults returns a holder that never reloads.
func NewStaticReferralDefaults(d ReferralDefaults) *ReferralDefaultsHolder {
	holder := &ReferralDefaultsHolder{}
	holder.current.Store(d)
	return holder
}

func NewReferralDefaultsHolder(cfg Config) (*ReferralDefaultsHolder, error) {
	v := viper.New()

	if cfg.ReferralConfigPath != "" {
		v.SetConfigFile(cfg.ReferralConfigPath)
	} else {
		v.SetConfigName("referral")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/detailflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DETAILFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReferralDefaults()
	v.SetDefault("referral.rateL1", defaults.RateL1)
	v.SetDefault("referral.rateL2", defaults.RateL2)
	v.SetDefault("referral.rateL3", defaults.RateL3)
	v.SetDefault("referral.gstRate", defaults.GSTRate)
	v.SetDefault("referral.defaultDiscount", defaults.DefaultDiscount)
	v.SetDefault("referral.completionLock", defaults.CompletionLock)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		fileLoaded = false
	}

	loaded, err := decodeReferralDefaults(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticReferralDefaults(loaded)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeReferralDefaults(v)
			if err != nil {
				log.Printf("[referral-config] reload ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[referral-config] reloaded from %s", e.Name)
		})
		v.WatchConfig()
	}

	return holder, nil
}

// decodeReferralDefaults goes through Unmarshal so that keys missing from the
// file still pick up their registered defaults.
func decodeReferralDefaults(v *viper.Viper) (ReferralDefaults, error) {
	var wrapper struct {
		Referral ReferralDefaults `mapstructure:"referral"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return ReferralDefaults{}, err
	}
	if err := ValidateReferralDefaults(wrapper.Referral); err != nil {
		return ReferralDefaults{}, err
	}
	return wrapper.Referral, nil
}

func (h *ReferralDefaultsHolder) Get() ReferralDefaults {
	if h == nil {
		return DefaultReferralDefaults()
	}
	return h.current.Load().(ReferralDefaults)
}

func ValidateReferralDefaults(d ReferralDefaults) error {
	for name, rate := range map[string]float64{
		"rateL1":  d.RateL1,
		"rateL2":  d.RateL2,
		"rateL3":  d.RateL3,
		"gstRate": d.GSTRate,
	} {
		if math.IsNaN(rate) || math.IsInf(rate, 0) || !referral.ValidPercent(decimal.NewFromFloat(rate)) {
			return fmt.Errorf("referral.%s must be between 0 and 100", name)
		}
	}
	if d.DefaultDiscount < 0 {
		return errors.New("referral.defaultDiscount cannot be negative")
	}
	if d.CompletionLock <= 0 {
		return errors.New("referral.completionLock must be positive")
	}
	return nil
}
