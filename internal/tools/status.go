package tools

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// StatusSpec describes get_current_status.
var StatusSpec = Spec{
	Name:        "get_current_status",
	Description: "Query the monitoring system for the database server's current performance: connection count, CPU usage and memory usage.",
}

// StatusProbe simulates the monitoring API of a database server.
type StatusProbe struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewStatusProbe creates a probe. A nil source seeds from the clock.
func NewStatusProbe(src rand.Source) *StatusProbe {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &StatusProbe{rnd: rand.New(src)}
}

type serverStatus struct {
	Connections int    `json:"connections"`
	CPUUsage    string `json:"cpu_usage"`
	MemoryUsage string `json:"memory_usage"`
}

// Status returns one simulated reading.
func (p *StatusProbe) Status(_ context.Context, _ Arguments) (string, error) {
	p.mu.Lock()
	connections := 10 + p.rnd.Intn(91)
	cpu := roundTenth(1 + p.rnd.Float64()*99)
	mem := roundTenth(10 + p.rnd.Float64()*90)
	p.mu.Unlock()

	return marshalPayload(serverStatus{
		Connections: connections,
		CPUUsage:    fmt.Sprintf("%.1f%%", cpu),
		MemoryUsage: fmt.Sprintf("%.1f%%", mem),
	})
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}

// RegisterBuiltins registers the tools that need no external service.
func RegisterBuiltins(reg *Registry, probe *StatusProbe) error {
	if err := reg.Register(WeatherSpec, CurrentWeather); err != nil {
		return err
	}
	if probe == nil {
		probe = NewStatusProbe(nil)
	}
	return reg.Register(StatusSpec, probe.Status)
}
