package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"runtopsy/internal/auth"
	"runtopsy/internal/config"
	"runtopsy/internal/tui"
)

func TestAuthProviderFollowsCallbackPort(t *testing.T) {
	p := authProvider(8089, nil)
	server, ok := p.(*auth.LocalServerProvider)
	require.True(t, ok, "got %T", p)
	require.Equal(t, "http://localhost:8089/callback", server.RedirectURL())

	notes := tui.NewNoteWriter()
	p = authProvider(8089, notes)
	require.Same(t, notes, p.(*auth.LocalServerProvider).Out)

	p = authProvider(0, nil)
	_, ok = p.(*auth.PromptProvider)
	require.True(t, ok, "got %T", p)

	// no terminal to paste into while the TUI runs
	require.Nil(t, authProvider(0, notes))
}

func TestZeroCallbackPortFromConfigSelectsPrompt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"importers": {"strava": {"enabled": true, "client_id": "1", "client_secret": "s", "callback_port": 0}}
	}`), 0600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	_, ok := authProvider(cfg.Importers.Strava.CallbackPort, nil).(*auth.PromptProvider)
	require.True(t, ok)
}
