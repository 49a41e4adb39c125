package builtin

import (
	"github.com/danmuck/layer23/internal/app"
	"github.com/danmuck/layer23/internal/app/echotest"
)

// Idle hosts no layer-3 behaviour: no work tick, no exit veto.
type Idle struct{}

func (Idle) ID() string {
	return "idle"
}

// Catalog returns every application shipped with the runtime.
func Catalog() *app.Catalog {
	c := app.NewCatalog()
	mustRegister(c, app.Metadata{ID: echotest.ID, Description: "L1CTL echo request/confirm test"}, func() app.App {
		return echotest.New()
	})
	mustRegister(c, app.Metadata{ID: "idle", Description: "no-op application"}, func() app.App {
		return Idle{}
	})
	return c
}

func mustRegister(c *app.Catalog, meta app.Metadata, f app.Factory) {
	if err := c.Register(meta, f); err != nil {
		panic(err)
	}
}
