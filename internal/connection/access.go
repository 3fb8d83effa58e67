// internal/connection/access.go
package connection

import (
	"sort"
	"sync"
	"time"

	"printer-bridge/internal/model"
)

// AccessRequest is a wired connect waiting for the host to allow it
type AccessRequest struct {
	Token       string       `json:"token"`
	Device      model.Device `json:"device"`
	RequestedAt time.Time    `json:"requested_at"`
}

type pendingAccess struct {
	AccessRequest
	result chan bool
}

// accessBroker pairs each access request with exactly one grant or deny
type accessBroker struct {
	mutex    sync.Mutex
	requests map[string]*pendingAccess
	publish  func(model.Event)
}

func newAccessBroker(publish func(model.Event)) *accessBroker {
	return &accessBroker{
		requests: make(map[string]*pendingAccess),
		publish:  publish,
	}
}

func (b *accessBroker) open(token string, device model.Device) *pendingAccess {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p := &pendingAccess{
		AccessRequest: AccessRequest{Token: token, Device: device, RequestedAt: time.Now()},
		result:        make(chan bool, 1),
	}
	b.requests[token] = p

	d := device
	b.publish(model.Event{Type: model.EventAccessRequested, Token: token, Device: &d})
	return p
}

// resolve delivers the outcome once; it reports false for unknown or
// already resolved tokens.
func (b *accessBroker) resolve(token string, granted bool) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	p, ok := b.requests[token]
	if !ok {
		return false
	}
	delete(b.requests, token)
	p.result <- granted

	d := p.Device
	b.publish(model.Event{
		Type:   model.EventAccessResolved,
		Token:  token,
		Device: &d,
		Data:   map[string]interface{}{"granted": granted},
	})
	return true
}

func (b *accessBroker) pending() []AccessRequest {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	out := make([]AccessRequest, 0, len(b.requests))
	for _, p := range b.requests {
		out = append(out, p.AccessRequest)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}
