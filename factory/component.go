package factory

import (
	"context"
	"fmt"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/component"
)

// Component runs a factory and one configured client as a lifecycle
// component. The client is created by Start or by the first Client call.
type Component struct {
	config Config
	opts   []Option
	lazy   *component.Lazy[*instance]
}

type instance struct {
	factory *Factory
	client  *client.Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component for cfg.
func NewComponent(cfg Config, opts ...Option) *Component {
	cfg.ApplyDefaults()
	c := &Component{config: cfg, opts: opts}
	c.lazy = component.NewLazy(cfg.Name, c.build)
	return c
}

func (c *Component) build(context.Context) (*instance, error) {
	f, err := FromConfig(c.config, c.opts...)
	if err != nil {
		return nil, err
	}
	cl, err := f.CreateClient(c.config)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &instance{factory: f, client: cl}, nil
}

// Name returns the configured client name.
func (c *Component) Name() string { return c.config.Name }

// Start creates the factory and client.
func (c *Component) Start(ctx context.Context) error {
	_, err := c.lazy.Get(ctx)
	return err
}

// Stop closes the client and releases the engine.
func (c *Component) Stop(context.Context) error {
	return c.lazy.Reset(func(in *instance) error {
		return in.factory.Close()
	})
}

// Health reports unhealthy until started and after Stop.
func (c *Component) Health(context.Context) component.Health {
	in, ok := c.lazy.Peek()
	if !ok {
		if err := c.lazy.LastError(); err != nil {
			return component.Unhealthy(c.Name(), err.Error())
		}
		return component.Unhealthy(c.Name(), "not started")
	}
	if in.client.IsClosed() {
		return component.Unhealthy(c.Name(), "client closed")
	}
	return component.Healthy(c.Name())
}

// Describe summarizes the configuration.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name: c.Name(),
		Type: "http-client",
		Details: fmt.Sprintf("backend=%s connect_timeout=%s read_timeout=%s",
			c.config.Backend, c.config.ConnectTimeout, c.config.ReadTimeout),
	}
}

// Client returns the client, creating it on first use.
func (c *Component) Client(ctx context.Context) (*client.Client, error) {
	in, err := c.lazy.Get(ctx)
	if err != nil {
		return nil, err
	}
	return in.client, nil
}
