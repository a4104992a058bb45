package ratelimit

import (
	"time"
)

type KeyStrategyId string

const (
	RemoteIpKeyStrategy KeyStrategyId = "remote_ip"
	SubjectKeyStrategy  KeyStrategyId = "subject"
)

type (
	RestHTTPConfig struct {
		Routes              []Route      `envPrefix:"ROUTE_"`
		DefaultPolicy       EndpointRule `envPrefix:"DEFAULT_"`
		Disabled            bool         `env:"DISABLED"`
		AllowIfNoMatch      bool         `env:"ALLOW_IF_NO_MATCH"`
		AllowIfNoIdentifier bool         `env:"ALLOW_IF_NO_ID"`
	}

	Route struct {
		// Pattern is the ServeMux pattern the route was registered with, e.g. "POST /v1/profiles".
		Pattern       string         `env:"PATTERN"`
		EndpointRules []EndpointRule `envPrefix:"POLICY_"`
	}

	EndpointRule struct {
		Method      string        `env:"METHOD"`
		Limit       int64         `env:"LIMIT" envDefault:"10000"`
		Window      time.Duration `env:"WINDOW" envDefault:"1m"`
		KeyStrategy KeyStrategyId `env:"KEY_STRATEGY" envDefault:"subject"`
	}
)
