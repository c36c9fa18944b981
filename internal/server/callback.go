package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"moodify/internal/services"
)

// LoopbackResult contains the result of a CLI sign-in flow.
type LoopbackResult struct {
	Token *oauth2.Token
	err   error
}

func (l *LoopbackResult) Error() error {
	return l.err
}

// LoopbackHandler handles the OAuth2 callback during the CLI sign-in dance,
// where a short-lived local server receives the browser redirect.
// Implements the Handler interface for registration with a Router.
type LoopbackHandler struct {
	authorizer  services.Authorizer
	state       string
	resultChan  chan LoopbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewLoopbackHandler creates a callback handler bound to one state token.
// The state token should be cryptographically random for CSRF protection.
func NewLoopbackHandler(authorizer services.Authorizer, state string) *LoopbackHandler {
	return &LoopbackHandler{
		authorizer: authorizer,
		state:      state,
		resultChan: make(chan LoopbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *LoopbackHandler) Routes() []string {
	return []string{"/auth/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates the state parameter, exchanges the authorization code for tokens,
// and sends the result through the result channel.
func (h *LoopbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle the callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		err := fmt.Errorf("invalid state parameter")
		h.Send(LoopbackResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.Send(LoopbackResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.authorizer.Exchange(r.Context(), code)
	if err != nil {
		h.Send(LoopbackResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(LoopbackResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the result through the channel (only once).
func (h *LoopbackHandler) Send(result LoopbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving flow completion.
//
// The channel receives exactly one result and is then closed.
func (h *LoopbackHandler) Result() <-chan LoopbackResult {
	return h.resultChan
}
