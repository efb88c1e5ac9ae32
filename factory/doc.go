// Package factory is the entry point of httpkit. A Factory owns one
// backend engine and hands out builders and clients that borrow it.
//
//	f, err := factory.FromConfig(factory.Config{Backend: "nethttp"})
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	c, err := f.CreateClient(cfg)
//
// Config is loadable with config.LoadConfig, so the same settings can come
// from YAML, a .env file or HTTPKIT_* environment variables.
package factory
