package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// LocalServerProvider receives the redirect on a short-lived local HTTP
// server
type LocalServerProvider struct {
	Port    int
	Out     io.Writer // where the auth URL is printed; defaults to stderr
	Timeout time.Duration
}

// NewLocalServerProvider listens on localhost:port during Authorize
func NewLocalServerProvider(port int) *LocalServerProvider {
	return &LocalServerProvider{Port: port, Timeout: AuthTimeout}
}

// RedirectURL points at the callback handler
func (p *LocalServerProvider) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", p.Port)
}

// Authorize prints authURL and waits for the browser to hit the callback
func (p *LocalServerProvider) Authorize(ctx context.Context, authURL string) (string, error) {
	state, err := stateOf(authURL)
	if err != nil {
		return "", err
	}

	// Channel to receive the auth code
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	// Create server mux (don't use DefaultServeMux)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code, err := codeFromCallback(r.URL.Query(), state)
		if err != nil {
			select {
			case errChan <- err:
			default:
			}
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #10B981;">Success!</h1>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`)
		select {
		case codeChan <- code:
		default:
		}
	})

	// Start local server
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", p.Port))
	if err != nil {
		return "", fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: mux}
	defer shutdownServer(server)

	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To authenticate with Strava, open this URL in your browser:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n", authURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Waiting for authentication...")

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = AuthTimeout
	}

	// Wait for callback with timeout
	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errChan:
		return "", err
	case <-time.After(timeout):
		return "", fmt.Errorf("authentication timeout after %v", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
