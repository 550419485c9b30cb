// Package render — go-rod browser engine.
package render

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// defaultNetworkIdle is how long the page must go without requests before
// it counts as idle.
const defaultNetworkIdle = 500 * time.Millisecond

// RodLauncher starts Chromium through go-rod.
type RodLauncher struct {
	// Bin is the browser binary. Empty lets go-rod find or download one.
	Bin       string
	NoSandbox bool
	// NetworkIdle overrides defaultNetworkIdle when positive.
	NetworkIdle time.Duration
}

// NewRodLauncher creates a RodLauncher.
func NewRodLauncher(bin string, noSandbox bool) *RodLauncher {
	return &RodLauncher{Bin: bin, NoSandbox: noSandbox}
}

// Launch starts a fresh headless browser and connects to it.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	ln := launcher.New().Context(ctx).Headless(true).NoSandbox(l.NoSandbox)
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		ln.Kill()
		return nil, fmt.Errorf("starting chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("connecting to chromium: %w", err)
	}

	idle := l.NetworkIdle
	if idle <= 0 {
		idle = defaultNetworkIdle
	}
	return &rodBrowser{browser: browser, launcher: ln, idle: idle}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	idle     time.Duration
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return &rodPage{page: page.Context(ctx), idle: b.idle}, nil
}

// Close shuts the browser down and removes its process and profile directory.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
	idle time.Duration
}

func (p *rodPage) SetContent(html string) error {
	waitIdle := p.page.WaitRequestIdle(p.idle, nil, nil, nil)
	if err := p.page.SetDocumentContent(html); err != nil {
		return err
	}
	if err := p.page.WaitLoad(); err != nil {
		return err
	}
	waitIdle()
	return nil
}

func (p *rodPage) EmulateScreenMedia() error {
	return proto.EmulationSetEmulatedMedia{Media: "screen"}.Call(p.page)
}

func (p *rodPage) PrintPDF(opts PrintOptions) ([]byte, error) {
	stream, err := p.page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      inches(opts.PaperWidth),
		PaperHeight:     inches(opts.PaperHeight),
		MarginTop:       inches(opts.MarginTop),
		MarginRight:     inches(opts.MarginRight),
		MarginBottom:    inches(opts.MarginBottom),
		MarginLeft:      inches(opts.MarginLeft),
		PrintBackground: opts.PrintBackground,
	})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(stream)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

// inches converts millimetres to the inch values DevTools expects.
func inches(mm float64) *float64 {
	v := mm / 25.4
	return &v
}
