package session

import (
	"github.com/rs/zerolog"

	"ftpsession/protocols"
)

type Option func(*Session)

// WithTransportFactory replaces the factory used to create the Transport on
// Connect.
func WithTransportFactory(f protocols.Factory) Option {
	return func(s *Session) {
		s.factory = f
	}
}

// WithResolver replaces the host name lookup done before connecting.
func WithResolver(r protocols.Resolver) Option {
	return func(s *Session) {
		s.resolve = r
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
		s.strategy.log = l
	}
}

// WithChunkSize sets the largest block a binary transfer reads at once.
func WithChunkSize(n int64) Option {
	return func(s *Session) {
		if n > 0 {
			s.strategy.ChunkSize = n
		}
	}
}

// WithLineEnding sets the terminator written after each line of a text
// transfer. The default is the platform's native terminator.
func WithLineEnding(eol string) Option {
	return func(s *Session) {
		if eol != "" {
			s.strategy.LineEnding = eol
		}
	}
}

// WithLocalRoot resolves relative local paths against dir.
func WithLocalRoot(dir string) Option {
	return func(s *Session) {
		s.local.RootPath = dir
	}
}
