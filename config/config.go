package config

import (
	"errors"
	"fmt"
	"strings"

	validator "github.com/asaskevich/govalidator"
	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/criteo/cdb-adapter/storage"
)

// Configuration holds everything the adapter needs from its host.
type Configuration struct {
	// Endpoint is the vendor bid endpoint. Required.
	Endpoint string `mapstructure:"endpoint"`

	// ProfileID and AdapterVersion are the static identifiers carried on
	// every bid URL.
	ProfileID      int `mapstructure:"profile_id"`
	AdapterVersion int `mapstructure:"adapter_version"`

	// UserSyncURL is the optional cookie-sync URL exposed to the host.
	UserSyncURL string `mapstructure:"usersync_url"`

	FastBid FastBid        `mapstructure:"fast_bid"`
	Storage storage.Config `mapstructure:"storage"`
}

// FastBid configures the cached-script path.
type FastBid struct {
	Enabled bool `mapstructure:"enabled"`

	// StorageKey names the cache entry the vendor prefetcher writes.
	StorageKey string `mapstructure:"storage_key"`

	// PublicKey optionally overrides the embedded signing key with a PEM
	// encoded PKIX public key.
	PublicKey string `mapstructure:"public_key"`

	// ScriptURL is where a fresh copy of the vendor script is fetched from
	// after each auction round without a delegate.
	ScriptURL string `mapstructure:"script_url"`
}

// New uses viper to build the adapter configuration and validates it.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if errs := c.validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	glog.Infof("criteo adapter configured: endpoint %s, profile %d, av %d", c.Endpoint, c.ProfileID, c.AdapterVersion)
	return &c, nil
}

func (cfg *Configuration) validate() []error {
	var errs []error
	errs = validateURL(cfg.Endpoint, "endpoint", true, errs)
	errs = validateURL(cfg.FastBid.ScriptURL, "fast_bid.script_url", cfg.FastBid.Enabled, errs)
	errs = validateURL(cfg.UserSyncURL, "usersync_url", false, errs)

	if cfg.ProfileID <= 0 {
		errs = append(errs, fmt.Errorf("profile_id must be positive, got %d", cfg.ProfileID))
	}
	if cfg.AdapterVersion <= 0 {
		errs = append(errs, fmt.Errorf("adapter_version must be positive, got %d", cfg.AdapterVersion))
	}
	return errs
}

// validateURL checks one URL-valued setting.
//
// Validating using both IsURL and IsRequestURL because IsURL allows relative
// paths whereas IsRequestURL requires an absolute path but fails to check
// other valid URL format constraints.
func validateURL(value string, name string, required bool, errs []error) []error {
	if value == "" {
		if required {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
		return errs
	}
	if !validator.IsURL(value) || !validator.IsRequestURL(value) {
		errs = append(errs, fmt.Errorf("%s: %q is not a valid URL", name, value))
	}
	return errs
}

// SetupViper establishes the defaults and environment bindings.
func SetupViper(v *viper.Viper) {
	v.SetDefault("endpoint", "https://bidder.criteo.com/cdb")
	v.SetDefault("profile_id", 207)
	v.SetDefault("adapter_version", 34)
	v.SetDefault("usersync_url", "")
	v.SetDefault("fast_bid.enabled", true)
	v.SetDefault("fast_bid.storage_key", "criteo_fast_bid")
	v.SetDefault("fast_bid.public_key", "")
	v.SetDefault("fast_bid.script_url", "https://static.criteo.net/js/ld/publishertag.prebid.js")
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.filename", "")
	v.SetDefault("storage.ttl_seconds", 0)
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout_ms", 200)

	v.SetEnvPrefix("CRITEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
