// Package cluster registers the orchestrator with Consul and aggregates the
// health checks behind its /health endpoint.
package cluster

import (
	"fmt"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// NewConsulClient tries each comma-separated agent address until one answers
// with a known leader.
func NewConsulClient(addrs string, log *zap.SugaredLogger) (*consul.Client, error) {
	for _, node := range strings.Split(addrs, ",") {
		node = strings.TrimSpace(node)
		if node == "" {
			continue
		}
		cfg := consul.DefaultConfig()
		cfg.Address = node

		client, err := consul.NewClient(cfg)
		if err != nil {
			log.Warnf("[Consul] cannot build client for %s: %v", node, err)
			continue
		}
		if _, err := client.Status().Leader(); err != nil {
			log.Warnf("[Consul] %s did not answer: %v", node, err)
			continue
		}
		log.Infof("[Consul] connected to %s", node)
		return client, nil
	}
	return nil, fmt.Errorf("no consul agent reachable at %q", addrs)
}
