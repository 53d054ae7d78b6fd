package cluster

import (
	"fmt"
	"os"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// Registration describes how this process appears in the catalog.
type Registration struct {
	Name       string
	Port       int
	HealthPort int
	Tags       []string
}

// Registrar owns this instance's catalog entry.
type Registrar struct {
	agent *consul.Agent
	id    string
	log   *zap.SugaredLogger
}

func NewRegistrar(client *consul.Client, log *zap.SugaredLogger) *Registrar {
	return &Registrar{agent: client.Agent(), log: log}
}

// Register adds the service with an HTTP check against /health. The
// instance id is derived from the hostname so restarts replace the entry.
func (r *Registrar) Register(reg Registration) error {
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	r.id = fmt.Sprintf("%s-%s", reg.Name, hostname)

	err := r.agent.ServiceRegister(&consul.AgentServiceRegistration{
		ID:   r.id,
		Name: reg.Name,
		Port: reg.Port,
		Tags: reg.Tags,
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", hostname, reg.HealthPort),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	})
	if err != nil {
		return fmt.Errorf("register %s in consul: %w", r.id, err)
	}
	r.log.Infof("[Consul] registered %s as %s", reg.Name, r.id)
	return nil
}

// Deregister removes the entry added by Register.
func (r *Registrar) Deregister() error {
	if r.id == "" {
		return nil
	}
	if err := r.agent.ServiceDeregister(r.id); err != nil {
		return fmt.Errorf("deregister %s: %w", r.id, err)
	}
	r.log.Infof("[Consul] deregistered %s", r.id)
	return nil
}
