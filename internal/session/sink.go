package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/skybridge-games/corenet/internal/logger"
	"github.com/skybridge-games/corenet/internal/protocol"
	"github.com/skybridge-games/corenet/internal/wire"
)

// The methods below implement protocol.Sink. Channel-scoped opcodes are
// delegated straight to the registry (spec §4.5); everything else updates
// session state and/or notifies the session Listener.

func (s *Session) OnUnicast(reliable bool, channelID, from, to wire.Identifier, payload []byte) {
	s.registry.HandleUnicast(reliable, channelID, from, to, payload)
}

func (s *Session) OnMulticast(reliable bool, channelID, from wire.Identifier, to []wire.Identifier, payload []byte) {
	s.registry.HandleMulticast(reliable, channelID, from, to, payload)
}

func (s *Session) OnBroadcast(reliable bool, channelID, from wire.Identifier, payload []byte) {
	s.registry.HandleBroadcast(reliable, channelID, from, payload)
}

// OnValidationRequest implements spec §4.4's "Validation flow". When
// responses sent earlier in this session are still on file (they survive
// FailOver and reconnects and are cleared by Disconnect) and the callback
// shapes line up, it replays them instead of re-prompting; otherwise it
// relays the callback list to the application Listener.
func (s *Session) OnValidationRequest(callbacks []protocol.ValidationCallback) {
	s.mu.Lock()
	stored := s.lastCredentials.Callbacks
	s.mu.Unlock()

	var filled []protocol.ValidationCallback
	if replayable(stored, callbacks) {
		filled = stored
	} else if s.listener != nil {
		filled = s.listener.OnValidationRequest(callbacks)
	} else {
		return
	}

	if err := s.SendValidationResponse(filled); err != nil {
		logger.Log.Error("session: failed to send validation response", zap.Error(err))
	}
}

// replayable reports whether stored responses can stand in for a fresh
// callback list without re-prompting the application: same length, same
// kind at each position, in order.
func replayable(stored, fresh []protocol.ValidationCallback) bool {
	if len(stored) == 0 || len(stored) != len(fresh) {
		return false
	}
	for i := range stored {
		if stored[i].Kind != fresh[i].Kind {
			return false
		}
	}
	return true
}

func (s *Session) OnLoginAccepted(user wire.Identifier) {
	s.mu.Lock()
	s.userID = user
	s.reconnecting = false
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.OnLoginAccepted(user)
	}
}

func (s *Session) OnLoginRejected(reason string) {
	if s.listener != nil {
		s.listener.OnLoginRejected(reason)
	}
	_ = s.Disconnect(false)
}

func (s *Session) OnUserAdded(user wire.Identifier) {
	if s.listener != nil {
		s.listener.OnUserAdded(user)
	}
}

func (s *Session) OnUserDropped(user wire.Identifier) {
	if s.listener != nil {
		s.listener.OnUserDropped(user)
	}
}

func (s *Session) OnUserJoinedChannel(channelID, user wire.Identifier) {
	s.registry.HandleUserJoinedChan(channelID, user)
}

func (s *Session) OnUserLeftChannel(channelID, user wire.Identifier) {
	s.registry.HandleUserLeftChan(channelID, user)
}

func (s *Session) OnJoinedChannel(name string, channelID wire.Identifier) {
	s.registry.HandleJoinedChan(name, channelID)
}

func (s *Session) OnLeftChannel(channelID wire.Identifier) {
	s.registry.HandleLeftChan(channelID)
}

func (s *Session) OnNewReconnectKey(key wire.Identifier, ttlSeconds int64) {
	s.mu.Lock()
	s.reconnectKey = key
	s.reconnectExpiry = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	s.mu.Unlock()
}

func (s *Session) OnUserDisconnected(user wire.Identifier) {
	if s.listener != nil {
		s.listener.OnUserDisconnected(user)
	}
}

func (s *Session) OnServerID(user wire.Identifier) {
	s.mu.Lock()
	s.serverID = user
	s.mu.Unlock()
	s.registry.SetServerID(user)
}

func (s *Session) OnChannelLocked(name string, user wire.Identifier) {
	if s.listener != nil {
		s.listener.OnChannelLocked(name, user)
	}
}
