package session

import "time"

// Config defines connection timeouts. A zero timeout disables the deadline.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadBufferSize int
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    0,
		WriteTimeout:   15 * time.Second,
		ReadBufferSize: 4096,
	}
}
