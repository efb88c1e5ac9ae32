// Package clienttest provides an in-memory client.Backend for tests.
//
// The backend records every request as the transport saw it, after all
// interceptors ran, and answers with a scripted Handler:
//
//	be := clienttest.NewBackend(clienttest.WithHandler(clienttest.Respond(200, "ok")))
//	c, _ := client.NewBuilder(be).Build()
//	resp, _ := c.SendString(req).Get()
//	be.LastRequest().Header.Get("X-Trace")
//
// WebSocket peers are scripted with Conn.
package clienttest
