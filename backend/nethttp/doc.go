// Package nethttp is the default backend. It runs exchanges on net/http,
// upgrades TLS connections to HTTP/2 through golang.org/x/net/http2 unless
// the client prefers HTTP/1.1, and dials WebSockets with gorilla/websocket.
//
// It honors every builder option:
//
//	be := nethttp.New()
//	defer be.Close()
//	c, err := client.NewBuilder(be).
//		ConnectTimeout(5 * time.Second).
//		ProxyAddress("proxy.internal", 3128).
//		Build()
package nethttp
