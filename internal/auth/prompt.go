package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// PromptProvider asks the user to paste the URL the browser was redirected
// to. Useful when no local port can be opened.
type PromptProvider struct {
	Redirect string // registered redirect URI; nothing needs to listen there
	In       io.Reader
	Out      io.Writer
}

// RedirectURL returns the configured redirect URI
func (p *PromptProvider) RedirectURL() string {
	if p.Redirect == "" {
		return "http://localhost/exchange_token"
	}
	return p.Redirect
}

// Authorize prints authURL and reads the pasted redirect URL
func (p *PromptProvider) Authorize(ctx context.Context, authURL string) (string, error) {
	state, err := stateOf(authURL)
	if err != nil {
		return "", err
	}

	fmt.Fprintln(p.Out, "Open this URL, approve access, then paste the address your browser was sent to:")
	fmt.Fprintf(p.Out, "  %s\n> ", authURL)

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errs <- fmt.Errorf("reading redirect url: %w", err)
			return
		}
		lines <- strings.TrimSpace(line)
	}()

	var pasted string
	select {
	case pasted = <-lines:
	case err := <-errs:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}

	u, err := url.Parse(pasted)
	if err != nil {
		return "", fmt.Errorf("parsing redirect url: %w", err)
	}
	return codeFromCallback(u.Query(), state)
}
