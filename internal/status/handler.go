// internal/status/handler.go
package status

import (
	"encoding/json"
	"net/http"
	"os"
)

// healthBody is the health endpoint's wire format.
type healthBody struct {
	Ready              bool    `json:"ready"`
	IsLoggedIn         bool    `json:"isLoggedIn"`
	LastTick           int64   `json:"lastTick"`
	AcceptedTotal      int64   `json:"acceptedTotal"`
	TriedTotal         int64   `json:"triedTotal"`
	ErrorsTotal        int64   `json:"errorsTotal"`
	LastError          *string `json:"lastError"`
	LastAcceptKey      *string `json:"lastAcceptKey"`
	StorageStateExists bool    `json:"storageStateExists"`
}

// NewHandler serves the health endpoint. loggedIn reports live session
// validity; storagePath is stat'ed per request (presence only).
func NewHandler(stats *Stats, loggedIn func() bool, storagePath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := stats.Snapshot()
		body := healthBody{
			Ready:              snap.Ready,
			IsLoggedIn:         loggedIn(),
			AcceptedTotal:      snap.AcceptedTotal,
			TriedTotal:         snap.TriedTotal,
			ErrorsTotal:        snap.ErrorsTotal,
			LastError:          nullable(snap.LastError),
			LastAcceptKey:      nullable(snap.LastAcceptKey),
			StorageStateExists: storageStateExists(storagePath),
		}
		if !snap.LastTick.IsZero() {
			body.LastTick = snap.LastTick.UnixMilli()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func storageStateExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
