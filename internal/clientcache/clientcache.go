// Package clientcache caches one digest.Client per (host, realm) so a
// long-lived process does not rebuild session key material on every
// request, and tracks which nonces it has already built a client for
// per host so a caller that accidentally feeds a stale or
// duplicate nonce back in gets ErrNonceReused instead of a silently
// wrong digest.
//
// Grounded on the teacher's authcache.go (AuthCache/AuthPath, a
// per-host sorted slice keyed on longest-path-prefix-wins) and
// counter.go (NonceCounter, a container/list-backed LRU), retargeted
// from per-request-path scoping to per-realm scoping: a Digest
// protection space is named by realm, not URL path, so the sort order
// here is longest-realm-name-first rather than deepest-path-first.
package clientcache

import (
	"container/list"
	"errors"
	"sort"
	"sync"

	"github.com/colindev/httpauth/challenge"
	"github.com/colindev/httpauth/digest"
)

// ErrNonceReused is returned by Put when the challenge's nonce has
// already been recorded for this host.
var ErrNonceReused = errors.New("clientcache: nonce already used for this host")

type entry struct {
	realm  string
	client *digest.Client
}

type byRealmLen []entry

func (e byRealmLen) Len() int      { return len(e) }
func (e byRealmLen) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

// Less orders longer realm names first, the same "more specific wins"
// bet the teacher's AuthPath.Less makes for deeper URL paths.
func (e byRealmLen) Less(i, j int) bool {
	if len(e[i].realm) != len(e[j].realm) {
		return len(e[i].realm) > len(e[j].realm)
	}
	return e[i].realm < e[j].realm
}

// Cache is safe for concurrent use. The mutex plays the role the
// teacher's session struct's sync.RWMutex played: guarding shared
// state in front of otherwise single-writer digest.Client values.
type Cache struct {
	mu       sync.RWMutex
	hosts    map[string]byRealmLen
	nonces   map[string]*list.List
	nonceCap int
}

// New returns an empty Cache. nonceCap bounds how many distinct
// nonces are remembered per host before the oldest is evicted;
// nonceCap <= 0 defaults to 64, mirroring NewNonceCounter's capacity
// floor.
func New(nonceCap int) *Cache {
	if nonceCap <= 0 {
		nonceCap = 64
	}
	return &Cache{
		hosts:    make(map[string]byRealmLen),
		nonces:   make(map[string]*list.List),
		nonceCap: nonceCap,
	}
}

// Get returns the cached client for host+realm, if any.
func (c *Cache) Get(host, realm string) (*digest.Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.hosts[host] {
		if e.realm == realm {
			return e.client, true
		}
	}
	return nil, false
}

// Put builds a digest.Client from ch and caches it under host and the
// challenge's realm, rejecting a nonce this host has already served.
func (c *Cache) Put(host string, ch challenge.Challenge, opts ...digest.Option) (*digest.Client, error) {
	realmVal, ok := ch.Get("realm")
	if !ok {
		return nil, &digest.MissingParameterError{Name: "realm"}
	}
	nonceVal, ok := ch.Get("nonce")
	if !ok {
		return nil, &digest.MissingParameterError{Name: "nonce"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seenLocked(host, nonceVal.Decoded) {
		return nil, ErrNonceReused
	}

	client, err := digest.NewClient(ch, opts...)
	if err != nil {
		return nil, err
	}

	paths := c.hosts[host]
	replaced := false
	for i := range paths {
		if paths[i].realm == realmVal.Decoded {
			paths[i].client = client
			replaced = true
			break
		}
	}
	if !replaced {
		paths = append(paths, entry{realm: realmVal.Decoded, client: client})
		sort.Sort(paths)
	}
	c.hosts[host] = paths

	c.rememberLocked(host, nonceVal.Decoded)
	return client, nil
}

// Invalidate drops the cached client for host+realm, e.g. after the
// caller observes digest.StaleFlag on a fresh challenge for the same
// protection space.
func (c *Cache) Invalidate(host, realm string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := c.hosts[host]
	for i, e := range paths {
		if e.realm == realm {
			e.client.MarkStale()
			c.hosts[host] = append(paths[:i], paths[i+1:]...)
			return
		}
	}
}

func (c *Cache) seenLocked(host, nonce string) bool {
	ll, ok := c.nonces[host]
	if !ok {
		return false
	}
	for e := ll.Front(); e != nil; e = e.Next() {
		if e.Value.(string) == nonce {
			return true
		}
	}
	return false
}

func (c *Cache) rememberLocked(host, nonce string) {
	ll, ok := c.nonces[host]
	if !ok {
		ll = list.New()
		c.nonces[host] = ll
	}
	ll.PushFront(nonce)
	if ll.Len() > c.nonceCap {
		ll.Remove(ll.Back())
	}
}
