// Package validation checks configuration structs.
//
// Struct runs go-playground/validator tags and names fields by their
// mapstructure keys, so errors point at the YAML or environment setting
// to fix. Checker collects cross-field rules that tags cannot express.
//
//	type ProxyConfig struct {
//	    Host string `mapstructure:"host"`
//	    Port int    `mapstructure:"port" validate:"gte=0,lte=65535"`
//	}
//	err := validation.Struct(cfg)
//
//	err = validation.NewChecker().
//	    Check(cfg.Port == 0 || cfg.Host != "", "proxy.host", "is required with proxy.port").
//	    Err()
//
// Both return *errors.AppError values with code CONFIGURATION_ERROR and a
// "fields" detail listing every failure.
package validation
