package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// target is one browser page as the host sees it.
type target interface {
	ID() string
	Info(ctx context.Context) (url, title string, err error)
	// Focused reports whether the page's document is visible and has focus.
	Focused(ctx context.Context) (bool, error)
	Close(ctx context.Context) error
}

// backend enumerates and creates pages.
type backend interface {
	Targets(ctx context.Context) ([]target, error)
	Open(ctx context.Context, url string) (target, error)
	Close() error
}

// rodBackend drives a real browser over the DevTools protocol. Only a
// browser it owns is closed on Close; an attached one keeps running.
type rodBackend struct {
	browser *rod.Browser
	owned   bool
}

func (b *rodBackend) Targets(ctx context.Context) ([]target, error) {
	pages, err := b.browser.Context(ctx).Pages()
	if err != nil {
		return nil, err
	}
	targets := make([]target, 0, len(pages))
	for _, page := range pages {
		targets = append(targets, &rodTarget{page: page})
	}
	return targets, nil
}

func (b *rodBackend) Open(ctx context.Context, url string) (target, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, err
	}
	return &rodTarget{page: page}, nil
}

func (b *rodBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.browser.Close()
}

type rodTarget struct {
	page *rod.Page
}

func (t *rodTarget) ID() string {
	return string(t.page.TargetID)
}

func (t *rodTarget) Info(ctx context.Context) (string, string, error) {
	info, err := t.page.Context(ctx).Info()
	if err != nil {
		return "", "", err
	}
	return info.URL, info.Title, nil
}

func (t *rodTarget) Focused(ctx context.Context) (bool, error) {
	result, err := t.page.Context(ctx).Eval(`() => document.visibilityState === "visible" && document.hasFocus()`)
	if err != nil {
		return false, err
	}
	return result.Value.Bool(), nil
}

func (t *rodTarget) Close(ctx context.Context) error {
	return t.page.Context(ctx).Close()
}
