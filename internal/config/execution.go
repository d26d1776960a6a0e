package config

import "time"

// ExecutionConfig configures the plan execution engine.
type ExecutionConfig struct {
	// Maximum steps running at the same time
	MaxParallel int `yaml:"max_parallel"`

	// Per-step execution timeout
	StepTimeout string `yaml:"step_timeout"`
}

// StreamConfig configures the WebSocket transport.
type StreamConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	ReadLimit    int64  `yaml:"read_limit"`
	WriteTimeout string `yaml:"write_timeout"`
	PingInterval string `yaml:"ping_interval"`
}

// DefaultExecutionConfig returns the default engine settings.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		MaxParallel: 3,
		StepTimeout: "60s",
	}
}

// DefaultStreamConfig returns the default transport settings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ListenAddr:   ":8765",
		ReadLimit:    1 << 20,
		WriteTimeout: "10s",
		PingInterval: "30s",
	}
}

// GetStepTimeout returns the per-step timeout as a duration.
func (c *Config) GetStepTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.StepTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetWriteTimeout returns the WebSocket write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Stream.WriteTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetPingInterval returns the WebSocket ping interval as a duration.
func (c *Config) GetPingInterval() time.Duration {
	d, err := time.ParseDuration(c.Stream.PingInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
