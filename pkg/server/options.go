package server

import (
	"time"

	"github.com/spf13/pflag"
)

// Options allows server options to be overridden.
type Options struct {
	// ListenAddress is the address the mock API listens on.
	ListenAddress string

	// ReadTimeout defines how long to wait for the client to send the
	// request body.
	ReadTimeout time.Duration

	// ReadHeaderTimeout defines how long to wait for request headers.
	ReadHeaderTimeout time.Duration

	// WriteTimeout defines how long we take to respond before giving up.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() Options {
	return Options{
		ListenAddress:     ":3000",
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// AddFlags allows server options to be modified.
func (o *Options) AddFlags(f *pflag.FlagSet) {
	d := DefaultOptions()
	f.StringVar(&o.ListenAddress, "listen", d.ListenAddress, "Mock API listener address.")
	f.DurationVar(&o.ReadTimeout, "read-timeout", d.ReadTimeout, "How long to wait for the client to send the request body.")
	f.DurationVar(&o.ReadHeaderTimeout, "read-header-timeout", d.ReadHeaderTimeout, "How long to wait for the client to send headers.")
	f.DurationVar(&o.WriteTimeout, "write-timeout", d.WriteTimeout, "How long to wait for a response to be written.")
	f.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", d.ShutdownTimeout, "How long to wait for in-flight requests on shutdown.")
}
