package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"

	"github.com/rezdm/Argus/internal/domain"
)

const (
	defaultHistory = 100
	defaultReset   = 1
	defaultListen  = "0.0.0.0:8080"
	defaultName    = "Argus"
)

// File is the destinations file. JSON is accepted as well as YAML.
//
//	{"name": "...", "listen": "0.0.0.0:8080", "monitors": [
//	  {"sort": 1, "group": "Core", "destinations": [
//	    {"sort": 1, "name": "gw", "timeout": 1000, "warning": 2, "failure": 4,
//	     "reset": 2, "interval": 30, "history": 100,
//	     "test": {"method": "Ping", "host": "10.0.0.1"}}]}]}
type File struct {
	Name     string      `yaml:"name" json:"name"`
	Listen   string      `yaml:"listen" json:"listen"`
	Monitors []GroupFile `yaml:"monitors" json:"monitors" validate:"required,min=1,dive"`
}

type GroupFile struct {
	Sort         int               `yaml:"sort" json:"sort"`
	Group        string            `yaml:"group" json:"group" validate:"required"`
	Destinations []DestinationFile `yaml:"destinations" json:"destinations" validate:"required,min=1,dive"`
}

type DestinationFile struct {
	Sort     int      `yaml:"sort" json:"sort"`
	Name     string   `yaml:"name" json:"name" validate:"required"`
	Timeout  int      `yaml:"timeout" json:"timeout" validate:"gt=0"`            // milliseconds
	Warning  int      `yaml:"warning" json:"warning" validate:"gt=0"`            // consecutive failures
	Failure  int      `yaml:"failure" json:"failure" validate:"gt=0"`            // consecutive failures
	Reset    *int     `yaml:"reset" json:"reset" validate:"omitempty,gt=0"`      // consecutive successes
	Interval int      `yaml:"interval" json:"interval" validate:"gt=0"`          // seconds
	History  *int     `yaml:"history" json:"history" validate:"omitempty,gte=0"` // results kept, capped at 1000
	Test     TestFile `yaml:"test" json:"test"`
}

type TestFile struct {
	Method   string `yaml:"method" json:"method" validate:"required"`
	Protocol string `yaml:"protocol" json:"protocol,omitempty"`
	Port     int    `yaml:"port" json:"port,omitempty"`
	URL      string `yaml:"url" json:"url,omitempty"`
	Proxy    string `yaml:"proxy" json:"proxy,omitempty"`
	Host     string `yaml:"host" json:"host,omitempty"`
}

// LoadDestinations reads, defaults and validates the destinations file.
// Groups and their destinations come back ordered by sort.
func LoadDestinations(path string) (*File, []domain.Group, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read destinations: %w", err)
	}
	return ParseDestinations(b)
}

func ParseDestinations(b []byte) (*File, []domain.Group, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, nil, fmt.Errorf("parse destinations: %w", err)
	}

	applyDefaults(&f)

	if err := validate.Struct(f); err != nil {
		return nil, nil, fmt.Errorf("config: %w", describe(err))
	}
	groups := f.groups()
	return &f, groups, nil
}

func applyDefaults(f *File) {
	if strings.TrimSpace(f.Name) == "" {
		f.Name = defaultName
	}
	if strings.TrimSpace(f.Listen) == "" {
		f.Listen = defaultListen
	}
	for i := range f.Monitors {
		g := &f.Monitors[i]
		g.Group = strings.TrimSpace(g.Group)
		for j := range g.Destinations {
			d := &g.Destinations[j]
			d.Name = strings.TrimSpace(d.Name)
			if d.History == nil {
				v := defaultHistory
				d.History = &v
			}
			if d.Reset == nil {
				v := defaultReset
				d.Reset = &v
			}
		}
	}
}

func (f *File) groups() []domain.Group {
	out := make([]domain.Group, 0, len(f.Monitors))
	for _, g := range f.Monitors {
		grp := domain.Group{Sort: g.Sort, Name: g.Group}
		for _, d := range g.Destinations {
			grp.Destinations = append(grp.Destinations, domain.Destination{
				Name:      d.Name,
				Group:     g.Group,
				Sort:      d.Sort,
				GroupSort: g.Sort,
				Timeout:   time.Duration(d.Timeout) * time.Millisecond,
				Warning:   d.Warning,
				Failure:   d.Failure,
				Reset:     *d.Reset,
				Interval:  time.Duration(d.Interval) * time.Second,
				History:   *d.History,
				Test: domain.TestSpec{
					Kind:     domain.ParseTestKind(d.Test.Method),
					Host:     strings.TrimSpace(d.Test.Host),
					Port:     d.Test.Port,
					Protocol: domain.ParseProtocol(d.Test.Protocol),
					URL:      strings.TrimSpace(d.Test.URL),
					Proxy:    strings.TrimSpace(d.Test.Proxy),
				},
			})
		}
		sort.SliceStable(grp.Destinations, func(i, j int) bool {
			return grp.Destinations[i].Sort < grp.Destinations[j].Sort
		})
		out = append(out, grp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sort < out[j].Sort })
	return out
}

// describe turns validator output into one readable error per field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var out error
	for _, fe := range verrs {
		out = multierr.Append(out, errors.New(formatFieldError(fe)))
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
