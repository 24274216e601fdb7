package app

import (
	"context"
	"time"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/pkg/logger"

	"go.uber.org/zap"
)

const contactLookupTimeout = 5 * time.Second

// presenceFanout is what the tracker needs from the relay to deliver
// online_status events. Implemented by Relay.
type presenceFanout interface {
	fanToRooms(rooms []string, excludeUser string, evt domain.Envelope)
	fanToUsers(userIDs []string, evt domain.Envelope)
	schedule(f func())
}

// PresenceTracker turns connection edges into online/offline broadcasts.
// Transitions are edge-triggered on the 0->1 and 1->0 connection counts,
// so multi-device users never produce duplicate notices.
type PresenceTracker struct {
	scope    domain.PresenceScope
	contacts repository.ContactStore
	out      presenceFanout
}

// NewPresenceTracker create a tracker. contacts may be nil unless the
// scope is PresenceScopeContacts.
func NewPresenceTracker(scope domain.PresenceScope, contacts repository.ContactStore) *PresenceTracker {
	if scope == "" {
		scope = domain.PresenceScopeRooms
	}
	return &PresenceTracker{
		scope:    scope,
		contacts: contacts,
	}
}

// Transition broadcast one online/offline edge for the user. rooms is
// the set of rooms the user's connections belonged to at the edge.
// Called on the relay loop.
func (t *PresenceTracker) Transition(userID string, online bool, rooms []string) {
	evt := domain.Envelope{
		Event:   domain.OnlineStatus,
		Payload: domain.OnlineNotice{UserID: userID, IsOnline: online},
	}

	if t.scope == domain.PresenceScopeContacts && t.contacts != nil {
		// Contact lookup hits the store, so it runs off-loop and the
		// fan-out re-enters the loop once the targets are known.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), contactLookupTimeout)
			defer cancel()

			contactIDs, err := t.contacts.FindContacts(ctx, userID)
			if err != nil {
				logger.Log.Errorf("presence contact lookup failed:", err, zap.String("userID", userID))
				return
			}
			if len(contactIDs) == 0 {
				return
			}
			t.out.schedule(func() {
				t.out.fanToUsers(contactIDs, evt)
			})
		}()
		return
	}

	t.out.fanToRooms(rooms, userID, evt)
}
