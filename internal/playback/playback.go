// Package playback is the boundary to the media playback collaborator.
// The session core attaches a coordinator once per session and hands it
// content to load; everything past that point is opaque.
package playback

import (
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/transport"
)

type Coordinator interface {
	// Attach binds the coordinator to a group session so transport
	// controls stay synchronized across peers. Called once per session.
	Attach(sess transport.GroupSession)
	// Load hands content to the local player. Blocking until the load
	// completes.
	Load(content domain.MediaContent) error
}

// LogCoordinator is the default coordinator: it only records playback
// intents. Real players implement Coordinator themselves.
type LogCoordinator struct{}

func (LogCoordinator) Attach(transport.GroupSession) {
	log.Info().Str("module", "playback").Msg("coordinator attached to session")
}

func (LogCoordinator) Load(content domain.MediaContent) error {
	log.Info().Str("module", "playback").
		Str("content", string(content.ID)).
		Str("title", content.Title).
		Msg("load content")
	return nil
}
