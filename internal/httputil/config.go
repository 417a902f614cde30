package httputil

import (
	"net"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig carries the networking options handed to the REST client.
// Multipath TCP stays off unless explicitly enabled; some platforms stall
// long-lived requests when the kernel negotiates MPTCP.
type ClientConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Multipath   bool          `mapstructure:"multipath"`
	UserAgent   string        `mapstructure:"user_agent"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("timeout"), "15s")
	v.SetDefault(p("dial_timeout"), "5s")
	v.SetDefault(p("multipath"), false)
	v.SetDefault(p("user_agent"), "bedrud-client")
}

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:     15 * time.Second,
		DialTimeout: 5 * time.Second,
		UserAgent:   "bedrud-client",
	}
}

// NewTransport builds an http.Transport whose dialer honours cfg.Multipath.
func NewTransport(cfg *ClientConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	dialer.SetMultipathTCP(cfg.Multipath)

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	return tr
}
