package client

import (
	"context"
	"slices"
	"testing"
)

type named string

func (n named) Before(context.Context, *RequestBuilder) error { return nil }
func (n named) After(context.Context, *Exchange) error        { return nil }

func TestChain_AddOrReplace(t *testing.T) {
	c := NewChain()
	c.AddOrReplace("auth", named("a1"))
	c.AddOrReplace("logging", named("l1"))
	c.AddOrReplace("retry", named("r1"))
	c.AddOrReplace("auth", named("a2"))

	if got := c.Names(); !slices.Equal(got, []string{"auth", "logging", "retry"}) {
		t.Fatalf("replace must keep position, got %v", got)
	}
	if ic, _ := c.Get("auth"); ic != named("a2") {
		t.Errorf("expected replacement behavior, got %v", ic)
	}
}

func TestChain_RemoveByNil(t *testing.T) {
	c := NewChain()
	c.AddOrReplace("a", named("a"))
	c.AddOrReplace("b", named("b"))

	c.AddOrReplace("a", nil)
	c.AddOrReplace("missing", nil)

	if got := c.Names(); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("expected only b, got %v", got)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
	c.AddOrReplace("a", named("a"))
	if got := c.Names(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("re-added entry must append, got %v", got)
	}
}

func TestChain_CloneIsIndependent(t *testing.T) {
	c := NewChain()
	c.AddOrReplace("a", named("a"))
	clone := c.Clone()
	clone.AddOrReplace("b", named("b"))
	clone.AddOrReplace("a", nil)

	if c.Len() != 1 {
		t.Errorf("original mutated: %v", c.Names())
	}
	if got := clone.Names(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("unexpected clone names %v", got)
	}
}

func TestChain_ZeroValueAndAll(t *testing.T) {
	var c Chain
	c.AddOrReplace("x", named("x"))
	c.AddOrReplace("y", named("y"))

	var seen []string
	for name := range c.All() {
		seen = append(seen, name)
		if name == "x" {
			break
		}
	}
	if !slices.Equal(seen, []string{"x"}) {
		t.Errorf("expected early stop, got %v", seen)
	}

	var nilChain *Chain
	if nilChain.Len() != 0 || nilChain.Names() != nil || nilChain.Clone().Len() != 0 {
		t.Error("nil chain should behave as empty")
	}
}

func TestCapabilities_Of(t *testing.T) {
	caps := Capabilities{OptProxyAddress: Unsupported, OptForStreaming: Advisory}
	if caps.Of(OptProxyAddress) != Unsupported || caps.Of(OptForStreaming) != Advisory {
		t.Error("unexpected support levels")
	}
	if caps.Of(OptReadTimeout) != Supported {
		t.Error("missing options default to supported")
	}
	if Advisory.String() != "advisory" {
		t.Errorf("unexpected String %q", Advisory.String())
	}
}
