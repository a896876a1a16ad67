// Package config loads the settings of the fixtures: where the CMIS server
// is, with which credentials, and how patient to be with it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/nemakiware/cmis-fixture/client"
	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/client/tlsclient"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
	"github.com/nemakiware/cmis-fixture/pkg/utils"
	"github.com/spf13/viper"
)

// DefaultRepository is the repository used when none is configured.
const DefaultRepository = "bedroom"

// Filename is the default configuration filename, without extension.
const Filename = "cmis-fixture"

// EnvPrefix is the prefix of the environment variables: cmis.url is read
// from NEMAKI_CMIS_URL.
const EnvPrefix = "nemaki"

// Paths is the list of directories used to search for a configuration file:
// the current directory, then the XDG configuration directories.
var Paths = configPaths()

func configPaths() []string {
	paths := []string{".", filepath.Join(xdg.ConfigHome, Filename)}
	for _, dir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(dir, Filename))
	}
	return append(paths, filepath.Join("/etc", Filename))
}

// legacyEnv are the environment variables of the former setup scripts. They
// still work, after the NEMAKI_<KEY> form.
var legacyEnv = map[string][]string{
	"cmis.url":        {"NEMAKI_BROWSER_URL"},
	"cmis.repository": {"NEMAKI_REPOSITORY_ID"},
	"cleanup.skip":    {"SKIP_CLEANUP"},
}

var config *Config

var log = logger.WithNamespace("config")

// Config contains the configuration values of the fixtures.
type Config struct {
	CMIS    CMIS
	REST    REST
	AtomURL string
	HTTP    HTTP
	Auth    utils.RetryPolicy
	Cleanup Cleanup
	Logger  logger.Options
}

// CMIS is the connection to the Browser Binding.
type CMIS struct {
	URL        string
	Repository string
	Username   string
	Password   string
	PageSize   int
	Succinct   bool
}

// REST is the connection to the management API. The credentials default to
// the CMIS ones.
type REST struct {
	URL      string
	Username string
	Password string
}

// HTTP contains the transport settings.
type HTTP struct {
	Timeout time.Duration
	TLS     tlsclient.Options
}

// Cleanup tells how the test data are removed.
type Cleanup struct {
	// Tree deletes folders with deleteTree rather than one by one.
	Tree bool
	// Skip keeps the test data, for debugging a failing suite.
	Skip bool
}

// GetConfig returns the configured instance of Config.
func GetConfig() *Config {
	if config == nil {
		panic("config: Setup must be called before GetConfig")
	}
	return config
}

// Setup Viper to read the environment, the .env file, and the optional
// config file.
func Setup(cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("Unable to load the .env file: %w", err)
	}

	v := viper.GetViper()
	if err := bindEnv(v); err != nil {
		return err
	}
	applyDefaults(v)

	if cfgFile == "" {
		var err error
		cfgFile, err = findConfigFile(Filename)
		if err != nil {
			return err
		}
	}
	if cfgFile != "" {
		log.Debugf("Using config file: %s", cfgFile)
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("Unable to read the configuration file %s: %w", cfgFile, err)
		}
	}
	return UseViper(v)
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envName := strings.ToUpper(EnvPrefix + "_" + strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envName}, names...)...); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("cmis.url", "http://localhost:8080/core/browser")
	v.SetDefault("cmis.username", "admin")
	v.SetDefault("cmis.password", "admin")
	v.SetDefault("cmis.page_size", client.DefaultPageSize)
	v.SetDefault("cmis.succinct", false)
	v.SetDefault("http.timeout", client.DefaultTimeout)
	v.SetDefault("auth.retries", utils.DefaultAuthPolicy.Attempts)
	v.SetDefault("auth.delay", utils.DefaultAuthPolicy.InitialDelay)
	v.SetDefault("auth.max_delay", utils.DefaultAuthPolicy.MaxDelay)
	v.SetDefault("cleanup.tree", true)
	v.SetDefault("cleanup.skip", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// UseViper sets the configured instance of Config.
func UseViper(v *viper.Viper) error {
	browserURL, repository, err := splitBrowserURL(v.GetString("cmis.url"))
	if err != nil {
		return err
	}
	// The repository of a NEMAKI_BROWSER_URL like .../core/browser/bedroom
	// is used unless one is explicitly configured.
	if r := v.GetString("cmis.repository"); r != "" {
		repository = r
	}
	if repository == "" {
		repository = DefaultRepository
	}

	restURL := v.GetString("rest.url")
	if restURL == "" {
		restURL = sibling(browserURL, "rest")
	}
	atomURL := v.GetString("atom.url")
	if atomURL == "" {
		atomURL = sibling(browserURL, "atom")
	}

	restUser := v.GetString("rest.username")
	restPassword := v.GetString("rest.password")
	if restUser == "" {
		restUser = v.GetString("cmis.username")
		restPassword = v.GetString("cmis.password")
	}

	attempts := v.GetInt("auth.retries")
	if attempts < 1 {
		return fmt.Errorf("auth.retries should be at least 1, was: %d", attempts)
	}

	config = &Config{
		CMIS: CMIS{
			URL:        browserURL,
			Repository: repository,
			Username:   v.GetString("cmis.username"),
			Password:   v.GetString("cmis.password"),
			PageSize:   v.GetInt("cmis.page_size"),
			Succinct:   v.GetBool("cmis.succinct"),
		},
		REST: REST{
			URL:      strings.TrimSuffix(restURL, "/"),
			Username: restUser,
			Password: restPassword,
		},
		AtomURL: strings.TrimSuffix(atomURL, "/"),
		HTTP: HTTP{
			Timeout: v.GetDuration("http.timeout"),
			TLS: tlsclient.Options{
				RootCAFile:  v.GetString("http.tls.ca_file"),
				CertFile:    v.GetString("http.tls.cert_file"),
				KeyFile:     v.GetString("http.tls.key_file"),
				Fingerprint: v.GetString("http.tls.fingerprint"),
				Insecure:    v.GetBool("http.tls.insecure"),
			},
		},
		Auth: utils.RetryPolicy{
			Attempts:     attempts,
			InitialDelay: v.GetDuration("auth.delay"),
			MaxDelay:     v.GetDuration("auth.max_delay"),
		},
		Cleanup: Cleanup{
			Tree: v.GetBool("cleanup.tree"),
			Skip: v.GetBool("cleanup.skip"),
		},
		Logger: logger.Options{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}

	return logger.Init(config.Logger)
}

// splitBrowserURL accepts both the URL of the binding and the URL of a
// repository (the binding URL followed by the repository id).
func splitBrowserURL(raw string) (browserURL, repository string, err error) {
	u, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return "", "", fmt.Errorf("Invalid cmis.url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("Invalid cmis.url %q: scheme and host are required", raw)
	}
	u.RawQuery = ""
	if u.Path == "" {
		u.Path = client.DefaultBrowserPath
	}
	dir, last := path.Split(u.Path)
	if last != "browser" && path.Base(dir) == "browser" {
		u.Path = strings.TrimSuffix(dir, "/")
		return u.String(), last, nil
	}
	return u.String(), "", nil
}

// sibling returns the URL of another binding of the same server, like
// http://host/core/rest for http://host/core/browser.
func sibling(browserURL, name string) string {
	u, _ := url.Parse(browserURL)
	u.Path = path.Join(path.Dir(u.Path), name)
	return u.String()
}

// NewClient returns a client for the configured server, with the admin
// credentials.
func NewClient() (*client.Client, error) {
	cfg := GetConfig()
	c, err := client.New(cfg.CMIS.URL, cfg.CMIS.Repository, &request.BasicAuthorizer{
		Username: cfg.CMIS.Username,
		Password: cfg.CMIS.Password,
	})
	if err != nil {
		return nil, err
	}
	restURL, err := url.Parse(cfg.REST.URL)
	if err != nil {
		return nil, err
	}
	if restURL.Host != c.Domain {
		return nil, fmt.Errorf("rest.url %q should be on the same server as cmis.url", cfg.REST.URL)
	}
	c.RESTPath = restURL.Path
	if atomURL, err := url.Parse(cfg.AtomURL); err == nil && atomURL.Host == c.Domain {
		c.AtomPath = atomURL.Path
	}
	if cfg.REST.Username != cfg.CMIS.Username || cfg.REST.Password != cfg.CMIS.Password {
		c.RESTAuthorizer = &request.BasicAuthorizer{
			Username: cfg.REST.Username,
			Password: cfg.REST.Password,
		}
	}
	c.Timeout = cfg.HTTP.Timeout
	c.PageSize = cfg.CMIS.PageSize
	c.Succinct = cfg.CMIS.Succinct
	if !cfg.HTTP.TLS.IsZero() {
		tr, err := tlsclient.NewTransport(cfg.HTTP.TLS)
		if err != nil {
			return nil, err
		}
		c.Transport = tr
	}
	return c, nil
}

// FindConfigFile search in the Paths directories for the file with the given
// name. It returns an error if it cannot find it or if an error occurs while
// searching.
func FindConfigFile(name string) (string, error) {
	filename, err := lookup(name)
	if err != nil {
		return "", err
	}
	if filename == "" {
		return "", fmt.Errorf("Could not find config file %q", name)
	}
	return filename, nil
}

func lookup(name string) (string, error) {
	for _, cp := range Paths {
		filename := filepath.Join(os.ExpandEnv(cp), name)
		_, err := os.Stat(filename)
		if err == nil {
			return filename, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}

// findConfigFile looks for the first file with a viper supported extension.
// No file is not an error.
func findConfigFile(name string) (string, error) {
	for _, ext := range viper.SupportedExts {
		filename, err := lookup(name + "." + ext)
		if err != nil || filename != "" {
			return filename, err
		}
	}
	return "", nil
}

// UseTestViper can be used in a test to inject a configuration made of the
// defaults and the given values.
func UseTestViper(values map[string]interface{}) error {
	v := viper.New()
	applyDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return UseViper(v)
}
