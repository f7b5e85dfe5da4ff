// Package dashboard provides the embedded live plotter page.
//
// The page connects to the bridge's websocket endpoint, parses every text
// message as an integer and draws a rolling line chart. It is served by the
// server package at the root path ("/").
package dashboard

import "embed"

// Assets is an embedded filesystem containing the plotter page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Plotter page with inline CSS and JavaScript
//
// The server substitutes {{.Title}} and {{.StreamPath}} before serving it.
//
//go:embed assets/*
var Assets embed.FS
