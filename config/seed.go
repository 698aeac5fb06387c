package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

//go:embed seed.yaml
var defaultSeed []byte

// ErrInvalidSeed is returned for a seed entry that cannot become a center or scenario.
var ErrInvalidSeed = errors.New("invalid seed")

type seedFile struct {
	Centers []seedCenter `mapstructure:"centers"`
}

type seedCenter struct {
	ID          string         `mapstructure:"id"`
	Name        string         `mapstructure:"name"`
	Tag         string         `mapstructure:"tag"`
	Description string         `mapstructure:"description"`
	Address     string         `mapstructure:"address"`
	Manager     string         `mapstructure:"manager"`
	Scenarios   []seedScenario `mapstructure:"scenarios"`
}

type seedScenario struct {
	Name           string   `mapstructure:"name"`
	Status         string   `mapstructure:"status"`
	Reason         string   `mapstructure:"reason"`
	Start          string   `mapstructure:"start"`
	ExpectedReopen string   `mapstructure:"expected_reopen"`
	Difficulty     string   `mapstructure:"difficulty"`
	Capacity       string   `mapstructure:"capacity"`
	OpenedOn       string   `mapstructure:"opened_on"`
	Versions       []string `mapstructure:"versions"`
}

// LoadSeed reads the initial centers from a YAML file, or the built-in centers when
// path is empty. Every status must be Open, Closed or Maintenance.
func LoadSeed(path string) ([]room.Center, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	var err error
	if path == "" {
		err = v.ReadConfig(bytes.NewReader(defaultSeed))
	} else {
		v.SetConfigFile(path)
		err = v.ReadInConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var file seedFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return file.centers()
}

func (f seedFile) centers() ([]room.Center, error) {
	centers := make([]room.Center, 0, len(f.Centers))
	for ci, c := range f.Centers {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: center %d has no name", ErrInvalidSeed, ci)
		}
		center := room.Center{
			ID:          c.ID,
			Name:        c.Name,
			Tag:         c.Tag,
			Description: c.Description,
			Address:     c.Address,
			Manager:     c.Manager,
			Scenarios:   make([]room.Scenario, 0, len(c.Scenarios)),
		}
		for si, s := range c.Scenarios {
			if s.Name == "" {
				return nil, fmt.Errorf("%w: %s scenario %d has no name", ErrInvalidSeed, c.Name, si)
			}
			status := state.ParseStatus(s.Status)
			if !status.Authoritative() {
				return nil, fmt.Errorf("%w: %s/%s has status %q", ErrInvalidSeed, c.Name, s.Name, s.Status)
			}
			center.Scenarios = append(center.Scenarios, room.Scenario{
				Name:           s.Name,
				Status:         status,
				Reason:         s.Reason,
				Start:          s.Start,
				ExpectedReopen: s.ExpectedReopen,
				Difficulty:     s.Difficulty,
				Capacity:       s.Capacity,
				OpenedOn:       s.OpenedOn,
				Versions:       s.Versions,
			})
		}
		centers = append(centers, center)
	}
	return centers, nil
}
