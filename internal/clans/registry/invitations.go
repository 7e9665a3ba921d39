package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Invitation struct {
	Clan    string
	Invitee uuid.UUID
	Inviter uuid.UUID
	Expires time.Time
}

// Invitations holds at most one live invitation per invitee; the last one wins.
type Invitations struct {
	mu        sync.Mutex
	ttl       time.Duration
	byInvitee map[uuid.UUID]Invitation
}

func NewInvitations(ttl time.Duration) *Invitations {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Invitations{ttl: ttl, byInvitee: map[uuid.UUID]Invitation{}}
}

func (iv *Invitations) Put(clan string, invitee, inviter uuid.UUID, now time.Time) Invitation {
	inv := Invitation{Clan: clan, Invitee: invitee, Inviter: inviter, Expires: now.Add(iv.ttl)}
	iv.mu.Lock()
	iv.byInvitee[invitee] = inv
	iv.mu.Unlock()
	return inv
}

// Get returns the live invitation for invitee, dropping it if expired.
func (iv *Invitations) Get(invitee uuid.UUID, now time.Time) (Invitation, bool) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	inv, ok := iv.byInvitee[invitee]
	if !ok {
		return Invitation{}, false
	}
	if !now.Before(inv.Expires) {
		delete(iv.byInvitee, invitee)
		return Invitation{}, false
	}
	return inv, true
}

// Consume removes the invitee's invitation if it is live and for clan.
func (iv *Invitations) Consume(invitee uuid.UUID, clan string, now time.Time) bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	inv, ok := iv.byInvitee[invitee]
	if !ok {
		return false
	}
	delete(iv.byInvitee, invitee)
	return inv.Clan == clan && now.Before(inv.Expires)
}

// DropClan forgets every invitation issued by clan.
func (iv *Invitations) DropClan(clan string) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	for id, inv := range iv.byInvitee {
		if inv.Clan == clan {
			delete(iv.byInvitee, id)
		}
	}
}

func (iv *Invitations) Sweep(now time.Time) int {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	n := 0
	for id, inv := range iv.byInvitee {
		if !now.Before(inv.Expires) {
			delete(iv.byInvitee, id)
			n++
		}
	}
	return n
}

func (iv *Invitations) Len() int {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return len(iv.byInvitee)
}
