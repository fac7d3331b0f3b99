package inventory

import (
	"sync"

	"steamtrade/lib/keyedindex"
)

// Item is a single asset inside an app context. Steam sends most of
// these fields as strings regardless of their actual type.
type Item struct {
	Id         string `json:"id"`
	ClassId    string `json:"classid"`
	InstanceId string `json:"instanceid"`
	Amount     string `json:"amount"`
	Pos        int    `json:"pos"`
}

// AppContext is one inventory context within an app. It is immutable
// once fetched; re-fetching replaces the whole value.
type AppContext struct {
	ContextId int
	Items     []Item
}

// AppInventory collects the fetched contexts of one app. Created on
// first reference to the app and never removed during a session.
type AppInventory struct {
	AppId    int
	Contexts *keyedindex.Index[int, AppContext]
}

func NewAppInventory(appId int) *AppInventory {
	return &AppInventory{
		AppId: appId,
		Contexts: keyedindex.New(func(c AppContext) int {
			return c.ContextId
		}),
	}
}

// Tree is one party's inventory, keyed by app id and context id.
// Inserts are mutex-guarded since reconciliation may fetch several
// contexts concurrently into the same tree.
type Tree struct {
	mu   sync.Mutex
	apps *keyedindex.Index[int, *AppInventory]
}

func NewTree() *Tree {
	return &Tree{
		apps: keyedindex.New(func(a *AppInventory) int {
			return a.AppId
		}),
	}
}

// Insert stores a fetched context under its app, creating the app
// entry if this is the first reference to it. A duplicate
// (app, context) pair is rejected: it means something fetched the same
// inventory twice, which the reconciler must treat as a bug rather
// than silently overwrite.
func (t *Tree) Insert(appId int, ctx AppContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	app, ok := t.apps.Get(appId)
	if !ok {
		app = NewAppInventory(appId)
		if err := t.apps.Insert(app); err != nil {
			return err
		}
	}
	return app.Contexts.Insert(ctx)
}

func (t *Tree) Contains(appId, contextId int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	app, ok := t.apps.Get(appId)
	if !ok {
		return false
	}
	return app.Contexts.Contains(contextId)
}

func (t *Tree) Get(appId, contextId int) (AppContext, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	app, ok := t.apps.Get(appId)
	if !ok {
		return AppContext{}, false
	}
	return app.Contexts.Get(contextId)
}

// Apps returns the app-level entries in insertion order.
func (t *Tree) Apps() []*AppInventory {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.apps.Values()
}

func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.apps.Len()
}
