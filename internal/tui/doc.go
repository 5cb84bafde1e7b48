// Package tui is the terminal host of the pre-contract wizard. It runs the
// wizard on Bubble Tea's update loop: option lists, module catalogs and the
// final submission are fetched in commands whose result messages are fed back
// into the wizard, which drops catalog results of superseded requests.
package tui
