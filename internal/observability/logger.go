package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PeerLogger returns the process logger scoped to one peer.
func PeerLogger(peerID string) zerolog.Logger {
	return log.Logger.With().Str("peer_id", peerID).Logger()
}
