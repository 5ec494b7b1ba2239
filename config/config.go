// Package config loads the pool configuration.
package config

import (
	"fmt"
	"time"

	"github.com/hedisam/poolsup/internal/mailbox"
	"github.com/hedisam/poolsup/log"
	"github.com/hedisam/poolsup/message"
	"github.com/hedisam/poolsup/pool"
	"github.com/hedisam/poolsup/supervision"
)

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Pool        PoolConfig        `yaml:"pool"`
	Supervision SupervisionConfig `yaml:"supervision"`
	Worker      WorkerConfig      `yaml:"worker"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Mailbox     MailboxConfig     `yaml:"mailbox"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type PoolConfig struct {
	// Name the pool supervisor is registered under
	Name        string `yaml:"name"`
	Size        int    `yaml:"size"`
	Replacement string `yaml:"replacement"`
}

type SupervisionConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Window     time.Duration `yaml:"window"`
	Rules      []RuleConfig  `yaml:"rules"`
	Default    string        `yaml:"default"`
}

// RuleConfig maps a failure kind to a directive
type RuleConfig struct {
	Kind      string `yaml:"kind"`
	Directive string `yaml:"directive"`
}

type WorkerConfig struct {
	SelfStopRatio float64 `yaml:"self_stop_ratio"`
}

type ScheduleConfig struct {
	Once          time.Duration `yaml:"once"`
	EveryDelay    time.Duration `yaml:"every_delay"`
	EveryInterval time.Duration `yaml:"every_interval"`
}

type MailboxConfig struct {
	Kind     string `yaml:"kind"`
	Capacity int    `yaml:"capacity"`
}

type BootstrapConfig struct {
	StartPool  bool          `yaml:"start_pool"`
	WorkItems  int           `yaml:"work_items"`
	Quiescence time.Duration `yaml:"quiescence"`
}

// failure kinds a rule can name
var kinds = map[string]supervision.Matcher{
	"arithmetic":       supervision.Is(supervision.ErrArithmetic),
	"nil_reference":    supervision.Is(supervision.ErrNilReference),
	"invalid_argument": supervision.Is(supervision.ErrInvalidArgument),
	"unhandled":        supervision.Is(message.ErrUnhandled),
	"panic":            supervision.As[*supervision.PanicError](),
	"any":              supervision.Any(),
}

// DefaultConfig mirrors supervision.DefaultPolicy. work is scheduled once
// after 5s and every second after 5s.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Pool: PoolConfig{
			Name:        "pool",
			Size:        5,
			Replacement: string(pool.ReplaceAppend),
		},
		Supervision: SupervisionConfig{
			MaxRetries: 10,
			Window:     time.Minute,
			Rules: []RuleConfig{
				{Kind: "arithmetic", Directive: "resume"},
				{Kind: "nil_reference", Directive: "restart"},
				{Kind: "invalid_argument", Directive: "stop"},
			},
			Default: "escalate",
		},
		Worker: WorkerConfig{SelfStopRatio: 0.5},
		Schedule: ScheduleConfig{
			Once:          5 * time.Second,
			EveryDelay:    5 * time.Second,
			EveryInterval: time.Second,
		},
		Mailbox: MailboxConfig{
			Kind:     string(mailbox.KindUnbounded),
			Capacity: mailbox.DefaultUserMailboxCap,
		},
		Bootstrap: BootstrapConfig{
			StartPool:  true,
			Quiescence: 2 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if c.Pool.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPoolSize, c.Pool.Size)
	}
	switch pool.Replacement(c.Pool.Replacement) {
	case pool.ReplaceAppend, pool.ReplaceInPlace:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidReplacement, c.Pool.Replacement)
	}
	if _, err := c.Supervision.Policy(); err != nil {
		return err
	}
	if c.Worker.SelfStopRatio < 0 || c.Worker.SelfStopRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, c.Worker.SelfStopRatio)
	}
	if c.Schedule.Once < 0 || c.Schedule.EveryDelay < 0 || c.Schedule.EveryInterval < 0 {
		return ErrInvalidSchedule
	}
	switch mailbox.Kind(c.Mailbox.Kind) {
	case mailbox.KindUnbounded, mailbox.KindBounded:
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidMailbox, c.Mailbox.Kind)
	}
	if c.Mailbox.Capacity < 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidMailbox, c.Mailbox.Capacity)
	}
	if c.Bootstrap.Quiescence < 0 {
		return ErrInvalidQuiescence
	}
	return nil
}

// Policy builds the supervision policy the pool applies to its workers
func (s SupervisionConfig) Policy() (supervision.Policy, error) {
	if s.Window < 0 {
		return supervision.Policy{}, fmt.Errorf("%w: %s", ErrInvalidWindow, s.Window)
	}
	fallback, err := supervision.ParseDirective(s.Default)
	if err != nil {
		return supervision.Policy{}, fmt.Errorf("%w: default: %v", ErrInvalidDirective, err)
	}

	rules := make([]supervision.Rule, 0, len(s.Rules))
	for i, rule := range s.Rules {
		match, ok := kinds[rule.Kind]
		if !ok {
			return supervision.Policy{}, fmt.Errorf("%w: rule %d: unknown kind %q", ErrInvalidRule, i, rule.Kind)
		}
		directive, err := supervision.ParseDirective(rule.Directive)
		if err != nil {
			return supervision.Policy{}, fmt.Errorf("%w: rule %d: %v", ErrInvalidRule, i, err)
		}
		rules = append(rules, supervision.Rule{Match: match, Directive: directive})
	}
	return supervision.NewPolicy(s.MaxRetries, s.Window, fallback, rules...), nil
}

// PoolSchedule converts the schedule section
func (s ScheduleConfig) PoolSchedule() pool.Schedule {
	return pool.Schedule{
		Once:          s.Once,
		EveryDelay:    s.EveryDelay,
		EveryInterval: s.EveryInterval,
	}
}
