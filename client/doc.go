// Package client defines the backend-agnostic HTTP and WebSocket client.
//
// A Builder accumulates a State, checks every option against the
// Backend's capability table and builds an immutable Client. A Client can
// derive new Builders that start from a copy of its State.
//
//	c, err := client.NewBuilder(backend).
//	    ConnectTimeout(5 * time.Second).
//	    AddOrReplaceInterceptor("trace", traceInterceptor).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	req, err := c.NewRequestBuilder().URI("https://api.example.com/orders").Build()
//	resp, err := c.SendString(req).Await(ctx)
//
// Every send returns a Future that completes exactly once. Interceptors run
// in insertion order: all Before hooks before the transport is contacted,
// then all After hooks once a response head or a failure is available.
package client
