// Package config loads httpkit configuration from YAML files, .env files and
// environment variables using Viper.
//
// # Usage
//
//	var cfg factory.Config
//	err := config.LoadConfig("orders-client", &cfg)
//
// Environment variables override file values. With the default HTTPKIT
// prefix, HTTPKIT_READ_TIMEOUT sets read_timeout and HTTPKIT_PROXY_ADDRESS
// sets proxy.address.
package config
