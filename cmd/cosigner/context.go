package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"cosigner/internal/apiclient"
	"cosigner/internal/config"
)

const clientTimeout = 30 * time.Second

type commandContext struct {
	configFlag *string
	addrFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, addrFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		addrFlag:   addrFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddress() (string, error) {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	return c.withClientTimeout(clientTimeout, fn)
}

func (c *commandContext) withClientTimeout(timeout time.Duration, fn func(*apiclient.Client) error) error {
	addr, err := c.apiAddress()
	if err != nil {
		return err
	}
	client, err := apiclient.New(addr, timeout)
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return wrapClientError(err, addr)
	}
	return nil
}

func wrapClientError(err error, addr string) error {
	if apiclient.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: not reachable; start it with `cosigner serve`", addr)
	}
	return err
}

// changeStateTimeout bounds a manual state change, which waits for the
// deployment and the settle interval on the daemon side.
func changeStateTimeout(cfg *config.Config) time.Duration {
	if cfg == nil {
		return clientTimeout
	}
	return cfg.DeployTimeout() + cfg.SettleInterval() + clientTimeout
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
