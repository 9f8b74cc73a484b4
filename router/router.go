// Package router implements the relay's in-memory name -> broadcast table:
// newest announcement wins, older ones remain as fallbacks, and removal is
// scoped to the exact consumer instance that was announced.
//
// Grounded on original_source/moq-relay/src/origins.rs's VecDeque-based
// origin table (push_front on announce, per-instance removal on drop).
package router

import (
	"container/list"
	"sync"

	"github.com/moqtransfork/moqrelay/model"
)

// Router maps broadcast names to the currently announced consumers for
// that name, newest first.
type Router struct {
	mu     sync.Mutex
	byName map[string]*list.List // each element is *model.BroadcastConsumer
}

// New returns an empty router.
func New() *Router {
	return &Router{byName: make(map[string]*list.List)}
}

// Announcement is a scoped handle returned by Announce. Closing it removes
// exactly the consumer it was created for, never the whole name entry.
type Announcement struct {
	r    *Router
	name string
	el   *list.Element
	once sync.Once
}

// Close removes this announcement's consumer from the router. Safe to
// call multiple times; only the first call has an effect. This is the
// router's resolution of SPEC_FULL §9 Open Question 1 (unannounce): the
// scoped handle is the primary removal mechanism; Router.Unannounce offers
// the same identity-based removal to callers that did not keep it.
func (a *Announcement) Close() {
	a.once.Do(func() {
		a.r.remove(a.name, a.el)
	})
}

// Announce registers consumer as newly available under its own name,
// shadowing (but not evicting) any previously announced consumer for that
// name. The returned handle must be closed when the announcement ends.
func (r *Router) Announce(consumer *model.BroadcastConsumer) *Announcement {
	name := consumer.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byName[name]
	if !ok {
		l = list.New()
		r.byName[name] = l
	}
	el := l.PushFront(consumer)

	return &Announcement{r: r, name: name, el: el}
}

// Unannounce is an explicit alternative to closing the Announcement
// handle, for callers that did not retain it. It performs the identical
// identity-based removal, never a blanket clear of the name.
func (r *Router) Unannounce(name string, consumer *model.BroadcastConsumer) {
	r.mu.Lock()
	l, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	var target *list.Element
	for el := l.Front(); el != nil; el = el.Next() {
		if el.Value.(*model.BroadcastConsumer) == consumer {
			target = el
			break
		}
	}
	r.mu.Unlock()
	if target != nil {
		r.remove(name, target)
	}
}

func (r *Router) remove(name string, el *list.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byName[name]
	if !ok {
		return
	}
	l.Remove(el)
	if l.Len() == 0 {
		delete(r.byName, name)
	}
}

// Resolve returns the currently active (newest) consumer for name, or
// false if nothing is announced under that name.
func (r *Router) Resolve(name string) (*model.BroadcastConsumer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byName[name]
	if !ok || l.Len() == 0 {
		return nil, false
	}
	return l.Front().Value.(*model.BroadcastConsumer), true
}
