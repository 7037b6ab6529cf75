package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Messages holds the user-facing texts shown in the error banner.
type Messages struct {
	InstallWallet string `json:"install_wallet"`
	ReadFailed    string `json:"read_failed"`
}

// Default returns the built-in texts.
func Default() Messages {
	return Messages{
		InstallWallet: "Please install a MetaMask wallet to use our bank.",
		ReadFailed:    "Could not load bank data from the contract.",
	}
}

// Parse decodes a messages JSON document. Keys missing from data keep their
// default text.
func Parse(data []byte) (Messages, error) {
	m := Default()
	if err := json.Unmarshal(data, &m); err != nil {
		return Messages{}, fmt.Errorf("failed to parse messages file: %w", err)
	}
	return m, nil
}

var (
	loaded   Messages
	loadOnce sync.Once
	loadErr  error
)

// Load reads the messages JSON file and caches the result. An empty path
// yields the defaults. Safe to call from multiple goroutines.
func Load(path string) (*Messages, error) {
	loadOnce.Do(func() {
		if path == "" {
			loaded = Default()
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read messages file: %w", err)
			return
		}
		loaded, loadErr = Parse(data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &loaded, nil
}
