package leaknews

import "embed"

// EmbeddedAssets contains the static assets shipped with the site:
// leaknews.css and loadmore.js.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
