package app

import (
	"errors"
	"testing"

	"github.com/danmuck/layer23/internal/testutil/testlog"
)

func TestCatalogRegisterAndNew(t *testing.T) {
	testlog.Start(t)
	c := NewCatalog()
	if err := c.Register(Metadata{ID: "bare", Description: "bare"}, func() App { return bareApp{} }); err != nil {
		t.Fatalf("register: %v", err)
	}
	a, err := c.New("bare")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID() != "bare" {
		t.Fatalf("unexpected app id: %q", a.ID())
	}
	if err := c.Register(Metadata{ID: "bare", Description: "again"}, func() App { return bareApp{} }); !errors.Is(err, ErrAppExists) {
		t.Fatalf("expected ErrAppExists, got %v", err)
	}
}

func TestCatalogUnknownApp(t *testing.T) {
	testlog.Start(t)
	if _, err := NewCatalog().New("cell_log"); !errors.Is(err, ErrUnknownApp) {
		t.Fatalf("expected ErrUnknownApp, got %v", err)
	}
}

func TestCatalogListSorted(t *testing.T) {
	testlog.Start(t)
	c := NewCatalog()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := c.Register(Metadata{ID: id, Description: id}, func() App { return bareApp{} }); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	list := c.List()
	if list[0].ID != "alpha" || list[1].ID != "mid" || list[2].ID != "zeta" {
		t.Fatalf("catalog not sorted: %+v", list)
	}
}

func TestValidateMetadataFailures(t *testing.T) {
	testlog.Start(t)
	cases := []Metadata{
		{ID: "", Description: "x"},
		{ID: "echo", Description: ""},
		{ID: "Echo", Description: "x"},
		{ID: ".echo", Description: "x"},
		{ID: "echo..test", Description: "x"},
	}
	for _, meta := range cases {
		if err := ValidateMetadata(meta); !errors.Is(err, ErrInvalidMetadata) {
			t.Fatalf("expected ErrInvalidMetadata for %+v, got %v", meta, err)
		}
	}
}
