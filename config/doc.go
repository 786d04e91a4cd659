// Package config loads service configuration for callguard binaries.
//
// LoadConfig uses Viper to read a config.yml found in the standard
// locations and loads a matching .env file with godotenv. Every leaf key of
// the target struct is bound to an environment variable named after it
// (RESILIENCE_RETRY_MAX_RETRIES sets resilience.retry.max_retries), with an
// optional prefix from WithEnvPrefix.
//
// # Usage
//
//	var cfg config.ServiceConfig
//	if err := config.LoadServiceConfig("callguard-probe", &cfg); err != nil {
//	    return err
//	}
//
// The resilience section starts from the named preset; any key set in the
// file or the environment overrides the preset value.
package config
