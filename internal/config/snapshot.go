package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/court-scheduler/internal/domain/reservation"
	"github.com/example/court-scheduler/internal/domain/user"
	"github.com/spf13/viper"
)

// Snapshot is one read of the reservation plan.
type Snapshot struct {
	Accounts            []user.Account       `mapstructure:"accounts"`
	Targets             []reservation.Target `mapstructure:"targets"`
	VerifyBeforeBooking bool                 `mapstructure:"verify_before_booking"`
	Group               reservation.Group    `mapstructure:"group"`
	MaxHoursPerDay      int                  `mapstructure:"max_hours_per_day"`
}

// Plan is the de-duplicated target list in configured order.
func (s Snapshot) Plan() []reservation.Target {
	return reservation.Dedup(s.Targets)
}

// DefaultAccount serves targets without an owner: the first account listed.
func (s Snapshot) DefaultAccount() user.Account {
	if len(s.Accounts) == 0 {
		return user.Placeholder()
	}
	return s.Accounts[0]
}

func (s Snapshot) Account(id string) (user.Account, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return user.Account{}, false
}

// Check reports every invalid target and quota overrun in the plan.
func (s Snapshot) Check() error {
	var errs []error
	for i, t := range s.Plan() {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("target %d: %w", i+1, err))
		}
		if t.Owner != "" {
			if _, ok := s.Account(t.Owner); !ok {
				errs = append(errs, fmt.Errorf("target %d: unknown account %q", i+1, t.Owner))
			}
		}
	}
	if err := reservation.CheckDailyQuota(s.Plan(), s.MaxHoursPerDay); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Source yields a fresh Snapshot on every call.
type Source interface {
	Load() (Snapshot, error)
}

// FileSource reads the plan from a yaml/json/toml file, with COURTSCHED_*
// environment overrides for scalar settings.
type FileSource struct {
	Path string
}

func (f FileSource) Load() (Snapshot, error) {
	v := viper.New()
	v.SetConfigFile(f.Path)
	v.SetEnvPrefix("courtsched")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("verify_before_booking", true)
	v.SetDefault("max_hours_per_day", reservation.DefaultMaxHoursPerDay)
	v.SetDefault("group.name", "")
	v.SetDefault("group.count", 1)

	if err := v.ReadInConfig(); err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", f.Path, err)
	}

	var s Snapshot
	if err := v.Unmarshal(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	if len(s.Accounts) == 0 {
		s.Accounts = []user.Account{user.Placeholder()}
	}
	return s, nil
}

// Static is a fixed Source.
type Static Snapshot

func (s Static) Load() (Snapshot, error) { return Snapshot(s), nil }
